package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"clipress/internal/api"
	"clipress/internal/queue"
	"clipress/internal/textutil"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#F9FAFB")
	colorBorder  = lipgloss.Color("#374151")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorPrimary).
			Padding(0, 2).
			MarginBottom(1)

	jobBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	nameStyle    = lipgloss.NewStyle().Bold(true).Width(28)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
)

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	title := "clipress watch"
	if m.jobID != "" {
		title += " " + shortJobID(m.jobID)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	case m.polls == 0:
		b.WriteString(mutedStyle.Render("Connecting to daemon..."))
		b.WriteString("\n")
		return b.String()
	case len(m.jobs) == 0:
		b.WriteString(mutedStyle.Render("No active jobs"))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([]string, 0, len(m.jobs))
	for _, job := range m.jobs {
		rows = append(rows, m.jobRow(job))
	}
	b.WriteString(jobBoxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("elapsed %s  •  q to quit", textutil.FormatDuration(time.Since(m.started)))))
	b.WriteString("\n")
	return b.String()
}

func (m watchModel) jobRow(job api.Job) string {
	name := nameStyle.Render(truncate(displayName(job), 26))
	switch queue.Status(job.Status) {
	case queue.StatusQueued:
		position := "queued"
		if job.QueuePosition > 0 {
			position = fmt.Sprintf("queued #%d", job.QueuePosition)
		}
		return name + " " + m.bar.ViewAs(0) + " " + mutedStyle.Render(position)
	case queue.StatusProcessing:
		return name + " " + m.bar.ViewAs(float64(job.Progress)/100) + " " + fmt.Sprintf("%3d%%", job.Progress)
	case queue.StatusCompleted:
		return name + " " + m.bar.ViewAs(1) + " " + successStyle.Render(completedSummary(job))
	case queue.StatusCancelled:
		return name + " " + m.bar.ViewAs(float64(job.Progress)/100) + " " + warningStyle.Render("cancelled")
	default:
		return name + " " + m.bar.ViewAs(float64(job.Progress)/100) + " " + errorStyle.Render(failureSummary(job))
	}
}

func completedSummary(job api.Job) string {
	if job.Result == nil {
		return "done"
	}
	return fmt.Sprintf("done, saved %s", textutil.FormatBytes(job.Result.SizeReduction))
}

func failureSummary(job api.Job) string {
	if job.ErrorKind == "" {
		return "failed"
	}
	return "failed: " + job.ErrorKind
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
