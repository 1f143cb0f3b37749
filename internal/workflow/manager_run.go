package workflow

import (
	"context"
	"errors"

	"clipress/internal/logging"
	"clipress/internal/notifications"
	"clipress/internal/queue"
)

const interruptedMessage = "daemon stopped while the job was processing"

// Start recovers jobs left by a previous run and begins processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.running = true
	m.mu.Unlock()

	if err := m.cfg.EnsureDirectories(); err != nil {
		m.setStopped()
		return err
	}
	if err := m.recover(ctx); err != nil {
		m.setStopped()
		return err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.wg.Add(m.slots)
	m.mu.Unlock()

	for slot := 1; slot <= m.slots; slot++ {
		go m.runSlot(runCtx, slot)
	}
	m.signal()

	logging.NewComponentLogger(m.logger, "workflow-manager").Info("workflow started",
		logging.Int("slots", m.slots),
		logging.Int("queued", m.pendingCount()),
	)
	return nil
}

// Stop cancels running jobs and waits for every slot to exit. Jobs that were
// processing end as failed with kind "interrupted"; queued jobs stay queued.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel(errShutdown)
	}
	m.wg.Wait()
}

// Running reports whether slots are processing the queue.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) setStopped() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// recover fails jobs a crashed run left processing and rebuilds the
// admission queue from the store.
func (m *Manager) recover(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "workflow-manager")
	failed, err := m.store.FailInterrupted(ctx, KindInterrupted, interruptedMessage)
	if err != nil {
		return err
	}
	for _, job := range failed {
		logging.WarnWithContext(logger, "job interrupted by restart", "job_interrupted",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldUserID, job.UserID),
			logging.String(logging.FieldImpact, "job marked failed; resubmit to retry"),
		)
		m.cleanup(job, logger)
		m.emit(job, notifications.EventFailed)
	}

	queued, err := m.store.ListJobs(ctx, queue.StatusQueued)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(queued))
	for _, job := range queued {
		ids = append(ids, job.ID)
	}
	m.mu.Lock()
	m.pending = ids
	m.mu.Unlock()
	return nil
}

func (m *Manager) enqueue(id string) {
	m.mu.Lock()
	m.pending = append(m.pending, id)
	m.mu.Unlock()
	m.signal()
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// removePending drops id from the admission queue. Callers hold m.mu.
func (m *Manager) removePending(id string) bool {
	for i, pending := range m.pending {
		if pending == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// claimNext blocks until a job is available, then registers it as active
// before releasing the lock so Cancel always finds it in one of the two
// places.
func (m *Manager) claimNext(ctx context.Context, slot int) (string, context.Context, *activeJob, bool) {
	for {
		m.mu.Lock()
		if len(m.pending) > 0 {
			id := m.pending[0]
			m.pending = m.pending[1:]
			jobCtx, cancel := context.WithCancelCause(ctx)
			task := &activeJob{cancel: cancel, done: make(chan struct{}), slot: slot}
			m.active[id] = task
			more := len(m.pending) > 0
			m.mu.Unlock()
			if more {
				m.signal()
			}
			return id, jobCtx, task, true
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", nil, nil, false
		case <-m.wake:
		}
	}
}

func (m *Manager) runSlot(ctx context.Context, slot int) {
	defer m.wg.Done()
	for {
		id, jobCtx, task, ok := m.claimNext(ctx, slot)
		if !ok {
			return
		}
		m.runClaimed(jobCtx, slot, id, task)
		if ctx.Err() != nil {
			return
		}
	}
}

func (m *Manager) runClaimed(ctx context.Context, slot int, id string, task *activeJob) {
	defer func() {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
		task.cancel(nil)
		close(task.done)
	}()

	job, err := m.store.GetJob(context.WithoutCancel(ctx), id)
	if err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logging.NewComponentLogger(m.logger, "workflow-manager"),
			"failed to load claimed job", "job_load_failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return
	}
	if job.Status != queue.StatusQueued {
		return
	}
	if ctx.Err() != nil {
		if errors.Is(context.Cause(ctx), errCancelRequested) {
			m.cancelQueued(context.WithoutCancel(ctx), job)
			return
		}
		// Stopped before the job started; it stays queued for the next run.
		m.mu.Lock()
		m.pending = append([]string{id}, m.pending...)
		m.mu.Unlock()
		return
	}
	m.execute(ctx, slot, job)
}
