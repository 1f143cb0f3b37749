package workflow

import (
	"context"
	"sort"

	"clipress/internal/logging"
	"clipress/internal/queue"
)

// SlotStatus describes a slot currently running a job.
type SlotStatus struct {
	Slot  int
	JobID string
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	Slots      int
	Active     []SlotStatus
	Pending    int
	LastError  string
	LastJob    *queue.Job
	QueueStats map[queue.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	summary := StatusSummary{
		Running: m.running,
		Slots:   m.slots,
		Pending: len(m.pending),
	}
	for id, task := range m.active {
		summary.Active = append(summary.Active, SlotStatus{Slot: task.slot, JobID: id})
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		copy := *m.lastJob
		summary.LastJob = &copy
	}
	m.mu.Unlock()

	sort.Slice(summary.Active, func(i, j int) bool { return summary.Active[i].Slot < summary.Active[j].Slot })

	stats, err := m.store.Stats(ctx)
	if err != nil {
		logging.NewComponentLogger(m.logger, "workflow-manager").Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
