package workflow

import (
	"context"
	"errors"
	"time"

	"clipress/internal/logging"
	"clipress/internal/notifications"
	"clipress/internal/queue"
)

// Cancel stops a queued or processing job. A processing job's encoder is
// terminated and Cancel returns once the job has settled as cancelled.
func (m *Manager) Cancel(ctx context.Context, jobID string) error {
	m.admitMu.Lock()
	m.mu.Lock()
	if task, ok := m.active[jobID]; ok {
		m.mu.Unlock()
		m.admitMu.Unlock()
		return m.cancelActive(ctx, jobID, task)
	}
	m.removePending(jobID)
	m.mu.Unlock()
	defer m.admitMu.Unlock()

	job, err := m.store.GetJob(ctx, jobID)
	if errors.Is(err, queue.ErrNotFound) {
		return &CancelError{JobID: jobID, Reason: ErrJobNotFound}
	}
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return &CancelError{JobID: jobID, Reason: ErrAlreadyTerminal}
	}
	// Queued, or a processing record with no live task behind it.
	m.cancelQueued(ctx, job)
	return nil
}

func (m *Manager) cancelActive(ctx context.Context, jobID string, task *activeJob) error {
	task.cancel(errCancelRequested)
	select {
	case <-task.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != queue.StatusCancelled {
		return &CancelError{JobID: jobID, Reason: ErrAlreadyTerminal}
	}
	return nil
}

// cancelQueued settles a job that never reached an encoder.
func (m *Manager) cancelQueued(ctx context.Context, job *queue.Job) {
	logger := logging.NewComponentLogger(m.logger, "workflow-manager").With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldUserID, job.UserID),
	)
	now := time.Now().UTC()
	job.Status = queue.StatusCancelled
	job.ErrorKind = "cancelled"
	job.ErrorMessage = "cancelled before processing"
	job.FinishedAt = &now
	if err := m.store.PutJob(ctx, job); err != nil {
		logging.ErrorWithContext(logger, "failed to persist cancellation", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	m.setLastJob(job)
	m.cleanup(job, logger)
	logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	m.emit(job, notifications.EventCancelled)
}
