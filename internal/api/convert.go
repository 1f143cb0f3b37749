package api

import (
	"errors"
	"slices"
	"time"

	"clipress/internal/deps"
	"clipress/internal/media/ffprobe"
	"clipress/internal/notifications"
	"clipress/internal/preflight"
	"clipress/internal/queue"
	"clipress/internal/services"
	"clipress/internal/settings"
	"clipress/internal/workflow"
)

// FromSettings converts a settings bundle to its transport form.
func FromSettings(s settings.JobSettings) Settings {
	return Settings{
		Preset:            string(s.Preset),
		Resolution:        string(s.Resolution),
		AudioBitrate:      string(s.AudioBitrate),
		VideoBitrate:      string(s.VideoBitrate),
		RemoveAudio:       &s.RemoveAudio,
		GenerateThumbnail: &s.GenerateThumbnail,
	}
}

// Overrides parses the transport form strictly. Empty fields and absent
// flags stay unset so the engine can fill them from defaults.
func (s Settings) Overrides() (settings.Overrides, error) {
	out := settings.Overrides{
		RemoveAudio:       s.RemoveAudio,
		GenerateThumbnail: s.GenerateThumbnail,
	}
	if err := out.Preset.UnmarshalText([]byte(s.Preset)); err != nil {
		return settings.Overrides{}, err
	}
	if err := out.Resolution.UnmarshalText([]byte(s.Resolution)); err != nil {
		return settings.Overrides{}, err
	}
	if err := out.AudioBitrate.UnmarshalText([]byte(s.AudioBitrate)); err != nil {
		return settings.Overrides{}, err
	}
	if err := out.VideoBitrate.UnmarshalText([]byte(s.VideoBitrate)); err != nil {
		return settings.Overrides{}, err
	}
	return out, nil
}

// FromResult converts a job result.
func FromResult(result *queue.Result) *JobResult {
	if result == nil {
		return nil
	}
	return &JobResult{
		OriginalSize:    result.OriginalSize,
		CompressedSize:  result.CompressedSize,
		SizeReduction:   result.SizeReduction,
		Ratio:           result.Ratio,
		ElapsedSeconds:  result.ElapsedSeconds,
		SpeedMBps:       result.SpeedMBps,
		DurationSeconds: result.DurationSeconds,
		Width:           result.Width,
		Height:          result.Height,
	}
}

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:                job.ID,
		UserID:            job.UserID,
		SourceName:        job.SourceName,
		SourcePath:        job.SourcePath,
		Status:            string(job.Status),
		Progress:          job.Progress,
		Settings:          FromSettings(job.Settings),
		Result:            FromResult(job.Result),
		DeliveredLocation: job.DeliveredLocation,
		ThumbnailLocation: job.ThumbnailPath,
		ErrorKind:         job.ErrorKind,
		ErrorMessage:      job.ErrorMessage,
		CreatedAt:         formatTime(job.CreatedAt),
		UpdatedAt:         formatTime(job.UpdatedAt),
		StartedAt:         formatTimePtr(job.StartedAt),
		FinishedAt:        formatTimePtr(job.FinishedAt),
		LastHeartbeat:     formatTimePtr(job.LastHeartbeat),
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:    summary.Running,
		Slots:      summary.Slots,
		Pending:    summary.Pending,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
		Active:     make([]SlotStatus, 0, len(summary.Active)),
	}
	for _, slot := range summary.Active {
		wf.Active = append(wf.Active, SlotStatus{Slot: slot.Slot, JobID: slot.JobID})
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeQueueStats returns counts for every status, including zeros.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromDependencies converts dependency checks, sorted by name.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	slices.SortFunc(out, func(a, b DependencyStatus) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromUser converts a user record.
func FromUser(user *queue.User, active int) UserStats {
	if user == nil {
		return UserStats{ActiveJobs: active}
	}
	out := UserStats{
		UserID:          user.ID,
		TotalCompressed: user.TotalCompressed,
		TotalBytesSaved: user.TotalBytesSaved,
		ActiveJobs:      active,
	}
	if user.Defaults != nil {
		d := FromSettings(*user.Defaults)
		out.Defaults = &d
	}
	return out
}

// FromTotals converts aggregate counters.
func FromTotals(t queue.Totals) Totals {
	return Totals{Users: t.Users, TotalCompressed: t.TotalCompressed, TotalBytesSaved: t.TotalBytesSaved}
}

// FromEvent converts an engine event.
func FromEvent(event notifications.Event) Event {
	return Event{
		Type:       string(event.Type),
		JobID:      event.JobID,
		UserID:     event.UserID,
		SourceName: event.SourceName,
		Status:     string(event.Status),
		Progress:   event.Progress,
		Result:     FromResult(event.Result),
		Location:   event.Location,
		ErrorKind:  event.ErrorKind,
		Error:      event.Error,
		Time:       formatTime(event.Time),
	}
}

// FromMediaInfo flattens a probe result.
func FromMediaInfo(info ffprobe.MediaInfo) MediaInfo {
	out := MediaInfo{
		DurationSeconds: info.DurationSeconds,
		SizeBytes:       info.SizeBytes,
		FormatName:      info.FormatName,
		BitRate:         info.BitRate,
	}
	if info.Video != nil {
		out.Width = info.Video.Width
		out.Height = info.Video.Height
		out.VideoCodec = info.Video.Codec
	}
	if info.Audio != nil {
		out.AudioCodec = info.Audio.Codec
	}
	return out
}

// FromRecommendation converts a workflow recommendation.
func FromRecommendation(rec workflow.Recommendation) Recommendation {
	return Recommendation{
		Info:            FromMediaInfo(rec.Info),
		Settings:        FromSettings(rec.Settings),
		EstimateSeconds: rec.EstimateSeconds,
	}
}

// ToSubmitRequest decodes the transport request into the engine request.
func ToSubmitRequest(req SubmitRequest) (workflow.SubmitRequest, error) {
	out := workflow.SubmitRequest{
		UserID:     req.UserID,
		SourcePath: req.SourcePath,
		SourceName: req.SourceName,
	}
	if req.Settings != nil {
		s, err := req.Settings.Overrides()
		if err != nil {
			return workflow.SubmitRequest{}, &workflow.AdmissionError{
				Reason:  workflow.ErrInvalidSettings,
				Message: err.Error(),
				Err:     err,
			}
		}
		out.Settings = &s
	}
	return out, nil
}

// ErrorKind returns the machine-readable kind reported to callers for err.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	kind := services.FailureKind(err)
	if kind != "internal" && kind != "storage_not_found" {
		return kind
	}
	if errors.Is(err, workflow.ErrJobNotFound) || errors.Is(err, queue.ErrNotFound) {
		return "not_found"
	}
	return kind
}

// FromDatabaseHealth converts queue database diagnostics.
func FromDatabaseHealth(h queue.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		DBPath:           h.DBPath,
		DatabaseExists:   h.DatabaseExists,
		DatabaseReadable: h.DatabaseReadable,
		SchemaVersion:    h.SchemaVersion,
		TableExists:      h.TableExists,
		ColumnsPresent:   h.ColumnsPresent,
		MissingColumns:   h.MissingColumns,
		IntegrityCheck:   h.IntegrityCheck,
		TotalJobs:        h.TotalJobs,
		Error:            h.Error,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
