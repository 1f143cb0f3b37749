package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipress/internal/logging"
	"clipress/internal/media/ffprobe"
	"clipress/internal/notifications"
	"clipress/internal/queue"
	"clipress/internal/services"
	"clipress/internal/settings"
	"clipress/internal/textutil"
)

// SubmitRequest describes a compression request. Fields left unset in
// Settings come from the user's stored defaults, then the configured
// defaults.
type SubmitRequest struct {
	UserID     string
	SourcePath string
	SourceName string
	Settings   *settings.Overrides
}

// Admission describes an accepted job.
type Admission struct {
	JobID           string
	QueuePosition   int
	EstimateSeconds int64
	Settings        settings.JobSettings
}

// Submit admits a job and returns its id without waiting for processing.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	admission, err := m.Admit(ctx, req)
	if err != nil {
		return "", err
	}
	return admission.JobID, nil
}

// Admit runs the admission checks in order (queue capacity, source, file
// size, settings) and queues the job.
func (m *Manager) Admit(ctx context.Context, req SubmitRequest) (Admission, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return Admission{}, &AdmissionError{Reason: ErrInvalidSettings, Message: "user id is required"}
	}
	source := strings.TrimSpace(req.SourcePath)
	if source == "" {
		return Admission{}, &AdmissionError{Reason: ErrSourceNotFound, Message: "source path is required"}
	}

	m.admitMu.Lock()
	defer m.admitMu.Unlock()

	active, err := m.store.CountActiveByUser(ctx, userID)
	if err != nil {
		return Admission{}, err
	}
	if limit := m.cfg.Compression.MaxJobsPerUser; limit > 0 && active >= limit {
		return Admission{}, &AdmissionError{
			Reason:  ErrQueueFull,
			Message: fmt.Sprintf("user %s already has %d active jobs (limit %d)", userID, active, limit),
		}
	}

	info, err := os.Stat(source)
	if err != nil {
		return Admission{}, &AdmissionError{Reason: ErrSourceNotFound, Message: source, Err: err}
	}
	if info.IsDir() {
		return Admission{}, &AdmissionError{Reason: ErrSourceNotFound, Message: source + " is a directory"}
	}
	if limit := m.cfg.MaxFileSizeBytes(); limit > 0 && info.Size() > limit {
		return Admission{}, &AdmissionError{
			Reason:  ErrFileTooLarge,
			Message: fmt.Sprintf("%s exceeds the %s limit", textutil.FormatBytes(info.Size()), textutil.FormatBytes(limit)),
		}
	}

	resolved, err := m.resolveSettings(ctx, userID, req.Settings)
	if err != nil {
		return Admission{}, err
	}

	name := strings.TrimSpace(req.SourceName)
	if name == "" {
		name = filepath.Base(source)
	}
	job := &queue.Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		SourcePath: source,
		SourceName: name,
		Settings:   resolved,
		Status:     queue.StatusQueued,
	}
	if err := m.store.PutJob(ctx, job); err != nil {
		return Admission{}, err
	}
	m.emit(job, notifications.EventQueued)
	m.enqueue(job.ID)

	admission := Admission{
		JobID:           job.ID,
		EstimateSeconds: settings.EstimateSeconds(info.Size(), resolved.Preset),
		Settings:        resolved,
	}
	admission.QueuePosition, _ = m.QueuePosition(job.ID)

	logger := logging.WithContext(services.WithUserID(services.WithJobID(ctx, job.ID), userID),
		logging.NewComponentLogger(m.logger, "workflow-manager"))
	logger.Info("job admitted",
		logging.String("source", name),
		logging.Int64("size_bytes", info.Size()),
		logging.String("preset", string(resolved.Preset)),
		logging.Int64("estimate_seconds", admission.EstimateSeconds),
		logging.Int("queue_position", admission.QueuePosition),
		logging.String(logging.FieldEventType, "job_admitted"),
	)
	return admission, nil
}

// resolveSettings snapshots the settings a job will run with.
func (m *Manager) resolveSettings(ctx context.Context, userID string, requested *settings.Overrides) (settings.JobSettings, error) {
	base, err := m.userBase(ctx, userID)
	if err != nil {
		return settings.JobSettings{}, err
	}

	resolved := base
	if requested != nil {
		resolved = requested.Apply(base)
	}
	if err := settings.Validate(resolved); err != nil {
		return settings.JobSettings{}, &AdmissionError{Reason: ErrInvalidSettings, Message: err.Error(), Err: err}
	}
	return resolved, nil
}

// userBase returns the user's stored defaults layered over the configured
// defaults.
func (m *Manager) userBase(ctx context.Context, userID string) (settings.JobSettings, error) {
	base := m.cfg.Defaults.WithDefaults(settings.Defaults())
	user, err := m.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		if user.Defaults != nil {
			base = user.Defaults.WithDefaults(base)
		}
	case errors.Is(err, queue.ErrNotFound):
	default:
		return settings.JobSettings{}, err
	}
	return base, nil
}

// SetUserDefaults updates the settings used when the user submits without
// choosing. Unset fields keep the user's current defaults.
func (m *Manager) SetUserDefaults(ctx context.Context, userID string, defaults settings.Overrides) (settings.JobSettings, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return settings.JobSettings{}, services.Wrap(services.ErrValidation, "defaults", "set", "user id is required", nil)
	}
	base, err := m.userBase(ctx, userID)
	if err != nil {
		return settings.JobSettings{}, err
	}
	resolved := defaults.Apply(base)
	if err := settings.Validate(resolved); err != nil {
		return settings.JobSettings{}, err
	}
	if err := m.store.PutUser(ctx, &queue.User{ID: userID, Defaults: &resolved}); err != nil {
		return settings.JobSettings{}, err
	}
	return resolved, nil
}

// Recommendation is a suggested settings bundle for a source file.
type Recommendation struct {
	Info            ffprobe.MediaInfo    `json:"info"`
	Settings        settings.JobSettings `json:"settings"`
	EstimateSeconds int64                `json:"estimate_seconds"`
}

// Recommend probes path and suggests settings. Nothing is queued.
func (m *Manager) Recommend(ctx context.Context, path string) (Recommendation, error) {
	info, err := m.prober.Probe(ctx, path)
	if err != nil {
		return Recommendation{}, err
	}
	suggested := settings.Recommend(info)
	return Recommendation{
		Info:            info,
		Settings:        suggested,
		EstimateSeconds: settings.EstimateSeconds(info.SizeBytes, suggested.Preset),
	}, nil
}
