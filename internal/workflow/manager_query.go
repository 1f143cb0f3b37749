package workflow

import (
	"context"
	"errors"
	"fmt"

	"clipress/internal/queue"
)

// GetJob returns the stored job record.
func (m *Manager) GetJob(ctx context.Context, id string) (*queue.Job, error) {
	job, err := m.store.GetJob(ctx, id)
	if errors.Is(err, queue.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// GetUserQueue returns the user's queued and processing jobs in admission
// order.
func (m *Manager) GetUserQueue(ctx context.Context, userID string) ([]*queue.Job, error) {
	return m.store.ListActiveByUser(ctx, userID)
}

// UserJobs returns every job the user has submitted, oldest first.
func (m *Manager) UserJobs(ctx context.Context, userID string) ([]*queue.Job, error) {
	return m.store.ListJobsByUser(ctx, userID)
}

// ListJobs returns jobs in admission order, optionally filtered by status.
func (m *Manager) ListJobs(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	return m.store.ListJobs(ctx, statuses...)
}

// Stats counts jobs per status.
func (m *Manager) Stats(ctx context.Context) (map[queue.Status]int, error) {
	return m.store.Stats(ctx)
}

// UserStats returns the user's lifetime counters. Unknown users report zero.
func (m *Manager) UserStats(ctx context.Context, userID string) (*queue.User, error) {
	user, err := m.store.GetUser(ctx, userID)
	if errors.Is(err, queue.ErrNotFound) {
		return &queue.User{ID: userID}, nil
	}
	return user, err
}

// Totals aggregates the counters of every user.
func (m *Manager) Totals(ctx context.Context) (queue.Totals, error) {
	return m.store.Totals(ctx)
}

// QueuePosition reports the 1-based position of a queued job waiting for a
// slot.
func (m *Manager) QueuePosition(id string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, pending := range m.pending {
		if pending == id {
			return i + 1, true
		}
	}
	return 0, false
}

// ActiveJobIDs lists jobs that own a staging directory right now.
func (m *Manager) ActiveJobIDs(context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{}, len(m.active))
	for id := range m.active {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// ClearFinished deletes completed, failed and cancelled jobs.
func (m *Manager) ClearFinished(ctx context.Context) (int64, error) {
	return m.store.ClearTerminal(ctx)
}
