package main

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"clipress/internal/api"
	"clipress/internal/queue"
)

// jobSource returns the jobs a watch session tracks.
type jobSource func() ([]api.Job, error)

type snapshotMsg struct {
	jobs []api.Job
	err  error
}

type tickMsg time.Time

// watchModel polls the daemon and renders one progress bar per job. With a
// job id it quits once that job is terminal; otherwise it quits when no
// active jobs remain.
type watchModel struct {
	source   jobSource
	jobID    string
	interval time.Duration

	jobs     []api.Job
	bar      progress.Model
	width    int
	err      error
	done     bool
	started  time.Time
	polls    int
	quitting bool
}

func newWatchModel(source jobSource, jobID string, interval time.Duration) watchModel {
	return watchModel{
		source:   source,
		jobID:    jobID,
		interval: interval,
		bar: progress.New(
			progress.WithGradient("#7C3AED", "#10B981"),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		started: time.Now(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.fetch()
}

func (m watchModel) fetch() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		jobs, err := source()
		return snapshotMsg{jobs: jobs, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if width := msg.Width - 50; width > 10 {
			m.bar.Width = width
		}

	case tickMsg:
		return m, m.fetch()

	case snapshotMsg:
		m.polls++
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.jobs = msg.jobs
		if watchFinished(m.jobID, m.jobs) {
			m.done = true
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

// watchFinished reports whether a watch session has nothing left to follow.
func watchFinished(jobID string, jobs []api.Job) bool {
	if jobID == "" {
		for _, job := range jobs {
			if queue.Status(job.Status).IsActive() {
				return false
			}
		}
		return true
	}
	for _, job := range jobs {
		if job.ID == jobID {
			return queue.Status(job.Status).IsTerminal()
		}
	}
	return true
}
