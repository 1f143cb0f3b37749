package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clipress/internal/delivery"
	"clipress/internal/encoding"
	"clipress/internal/logging"
	"clipress/internal/media/ffprobe"
	"clipress/internal/notifications"
	"clipress/internal/queue"
	"clipress/internal/services"
	"clipress/internal/staging"
	"clipress/internal/textutil"
)

const (
	outputSuffix    = "_compressed.mp4"
	thumbnailSuffix = "_thumb.jpg"
	mebibyte        = 1024 * 1024
)

// execute drives a claimed job to a terminal state. Store writes and events
// use a context detached from cancellation so a cancelled job still records
// how it ended.
func (m *Manager) execute(ctx context.Context, slot int, job *queue.Job) {
	persistCtx := context.WithoutCancel(ctx)
	ctx = services.WithSlot(services.WithUserID(services.WithJobID(ctx, job.ID), job.UserID), slot)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-runner"))

	now := time.Now().UTC()
	job.Status = queue.StatusProcessing
	job.Progress = 0
	job.StartedAt = &now
	job.LastHeartbeat = &now
	job.WorkDir = staging.JobDir(m.cfg.Paths.StagingDir, job.ID)
	if err := m.store.PutJob(persistCtx, job); err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logger, "failed to persist processing state", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	m.emit(job, notifications.EventStarted)
	logger.Info("job started",
		logging.String("source", job.SourceName),
		logging.String("preset", string(job.Settings.Preset)),
		logging.String("resolution", string(job.Settings.Resolution)),
		logging.String(logging.FieldEventType, "job_started"),
	)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	result, err := m.process(ctx, persistCtx, job, logger)

	stopHeartbeat()
	hbWG.Wait()

	m.finish(ctx, persistCtx, job, result, err, logger)
}

// process runs the pipeline and returns the result of a successful job.
func (m *Manager) process(ctx, persistCtx context.Context, job *queue.Job, logger *slog.Logger) (*queue.Result, error) {
	if err := m.runPreflightChecks(services.WithStage(ctx, "preflight"), logger); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(job.WorkDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "staging", "create work dir", job.WorkDir, err)
	}

	info, err := m.prober.Probe(services.WithStage(ctx, "probe"), job.SourcePath)
	if err != nil {
		return nil, failWith(KindProbeFailed, err)
	}

	stem := textutil.OutputStem(job.SourceName)
	output := filepath.Join(job.WorkDir, stem+outputSuffix)
	job.OutputPath = output
	args, err := encoding.BuildArgs(job.SourcePath, output, job.Settings)
	if err != nil {
		return nil, err
	}

	progress := newProgressReporter(m, persistCtx, job, logger)
	monitor := encoding.NewMonitor(info.DurationSeconds)
	encodeCtx, cancel := context.WithTimeout(services.WithStage(ctx, "encode"), m.timeout)
	run, err := m.encoder.Run(encodeCtx, args, func(line string) {
		if pct, ok := monitor.OnLine(line); ok {
			progress.report(pct)
		}
	})
	cancel()
	if err != nil {
		_ = os.Remove(output)
		return nil, err
	}

	stat, err := os.Stat(output)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "encode", "stat output", "ffmpeg exited 0 without writing output", err)
	}
	outInfo, err := m.prober.Probe(services.WithStage(ctx, "verify"), output)
	if err != nil {
		logging.WarnWithContext(logger, "output probe failed; using source metadata", "output_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "result dimensions and duration come from the source"),
		)
		outInfo = info
	}
	elapsed := run.Elapsed
	if elapsed <= 0 && job.StartedAt != nil {
		elapsed = time.Since(*job.StartedAt)
	}
	result := buildResult(info.SizeBytes, stat.Size(), elapsed, outInfo)

	thumb := m.generateThumbnail(ctx, job, output, stem, outInfo.DurationSeconds, logger)

	delivered, err := m.deliverer.Deliver(services.WithStage(ctx, "deliver"), delivery.Artifact{
		JobID:         job.ID,
		UserID:        job.UserID,
		VideoPath:     output,
		ThumbnailPath: thumb,
	})
	if err != nil {
		return nil, err
	}
	job.DeliveredLocation = delivered.Location
	job.ThumbnailPath = delivered.ThumbnailLocation

	if err := m.store.IncrementUserStats(persistCtx, job.UserID, result.SizeReduction); err != nil {
		logging.ErrorWithContext(logger, "failed to update user stats", "user_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	return result, nil
}

func (m *Manager) generateThumbnail(ctx context.Context, job *queue.Job, video, stem string, duration float64, logger *slog.Logger) string {
	if !job.Settings.GenerateThumbnail || m.thumbnailer == nil {
		return ""
	}
	thumb := filepath.Join(job.WorkDir, stem+thumbnailSuffix)
	if err := m.thumbnailer.Generate(services.WithStage(ctx, "thumbnail"), video, thumb, duration); err != nil {
		logging.WarnWithContext(logger, "thumbnail generation failed", "thumbnail_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job completes without a thumbnail"),
		)
		_ = os.Remove(thumb)
		return ""
	}
	return thumb
}

// buildResult computes the size accounting for a finished compression.
func buildResult(original, compressed int64, elapsed time.Duration, info ffprobe.MediaInfo) *queue.Result {
	result := &queue.Result{
		OriginalSize:    original,
		CompressedSize:  compressed,
		SizeReduction:   original - compressed,
		ElapsedSeconds:  elapsed.Seconds(),
		DurationSeconds: info.DurationSeconds,
	}
	if original > 0 {
		result.Ratio = float64(result.SizeReduction) / float64(original) * 100
	}
	if secs := elapsed.Seconds(); secs > 0 {
		result.SpeedMBps = float64(original) / mebibyte / secs
	}
	if info.Video != nil {
		result.Width = info.Video.Width
		result.Height = info.Video.Height
	}
	return result
}

// finish records the terminal state, removes temporary files, then emits
// the single terminal event.
func (m *Manager) finish(ctx, persistCtx context.Context, job *queue.Job, result *queue.Result, err error, logger *slog.Logger) {
	now := time.Now().UTC()
	job.FinishedAt = &now

	cause := context.Cause(ctx)
	switch {
	case err == nil:
		job.Status = queue.StatusCompleted
		job.Progress = 100
		job.Result = result
		job.ErrorKind = ""
		job.ErrorMessage = ""
	case ctx.Err() != nil && errors.Is(cause, errCancelRequested):
		job.Status = queue.StatusCancelled
		job.ErrorKind = "cancelled"
		job.ErrorMessage = "cancelled during processing"
	case ctx.Err() != nil && errors.Is(cause, errShutdown):
		job.Status = queue.StatusFailed
		job.ErrorKind = KindInterrupted
		job.ErrorMessage = interruptedMessage
	default:
		job.Status = queue.StatusFailed
		job.ErrorKind = failureKind(err)
		job.ErrorMessage = err.Error()
	}

	if perr := m.store.PutJob(persistCtx, job); perr != nil {
		m.setLastError(perr)
		logging.ErrorWithContext(logger, "failed to persist terminal state", "job_persist_failed",
			logging.Error(perr),
			logging.String("status", string(job.Status)),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	m.setLastJob(job)
	m.logOutcome(logger, job, err)
	m.cleanup(job, logger)
	m.emit(job, notifications.TerminalEventType(job.Status))
}

// cleanup removes the job's work directory and, when configured, its source.
// Failures are logged and never change the job outcome.
func (m *Manager) cleanup(job *queue.Job, logger *slog.Logger) {
	dir := job.WorkDir
	if dir == "" {
		dir = staging.JobDir(m.cfg.Paths.StagingDir, job.ID)
	}
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logger, "work directory cleanup failed", "cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the staging janitor will retry later"),
		)
	}
	if !m.cfg.Compression.RemoveSource || job.SourcePath == "" {
		return
	}
	if err := os.Remove(job.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "source cleanup failed", "cleanup_failed",
			logging.String("path", job.SourcePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the source file stays on disk"),
		)
	}
}

// progressReporter publishes every percentage increase and persists at most
// once per interval.
type progressReporter struct {
	m           *Manager
	ctx         context.Context
	job         *queue.Job
	logger      *slog.Logger
	sampler     *logging.ProgressSampler
	interval    time.Duration
	lastPersist time.Time
}

func newProgressReporter(m *Manager, ctx context.Context, job *queue.Job, logger *slog.Logger) *progressReporter {
	return &progressReporter{
		m:        m,
		ctx:      ctx,
		job:      job,
		logger:   logger,
		sampler:  logging.NewProgressSampler(5),
		interval: m.persistInterval,
	}
}

func (p *progressReporter) report(pct int) {
	if pct <= p.job.Progress {
		return
	}
	p.job.Progress = pct
	p.m.emit(p.job, notifications.EventProgress)

	if now := time.Now(); now.Sub(p.lastPersist) >= p.interval {
		p.lastPersist = now
		if err := p.m.store.UpdateProgress(p.ctx, p.job.ID, pct); err != nil {
			p.logger.Debug("progress persist failed", logging.Error(err))
		}
	}
	if p.sampler.ShouldLog(float64(pct), "encode") {
		p.logger.Info("compression progress",
			logging.Int("percent", pct),
			logging.String(logging.FieldEventType, "job_progress"),
		)
	}
}

func (m *Manager) describeResult(result *queue.Result) string {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("%s -> %s (%.1f%% smaller)",
		textutil.FormatBytes(result.OriginalSize),
		textutil.FormatBytes(result.CompressedSize),
		result.Ratio,
	)
}
