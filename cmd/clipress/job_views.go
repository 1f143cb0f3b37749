package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipress/internal/api"
	"clipress/internal/queue"
	"clipress/internal/textutil"
)

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(status, "_", " "))
}

// buildQueueStatusRows lists every known status in lifecycle order, then any
// unknown keys the daemon reported.
func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats))
	seen := make(map[string]bool, len(stats))
	for _, status := range queue.AllStatuses() {
		key := string(status)
		seen[key] = true
		rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(stats[key])})
	}
	for key, count := range stats {
		if !seen[key] {
			rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(count)})
		}
	}
	return rows
}

func buildJobListRows(jobs []api.Job) [][]string {
	sorted := api.SortJobsNewestFirst(jobs)
	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		rows = append(rows, []string{
			shortJobID(job.ID),
			job.UserID,
			displayName(job),
			formatStatusLabel(job.Status),
			progressCell(job),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

func displayName(job api.Job) string {
	if name := strings.TrimSpace(job.SourceName); name != "" {
		return name
	}
	if job.SourcePath != "" {
		return job.SourcePath
	}
	return "Unknown"
}

func progressCell(job api.Job) string {
	switch job.Status {
	case string(queue.StatusQueued):
		if job.QueuePosition > 0 {
			return fmt.Sprintf("#%d", job.QueuePosition)
		}
		return "-"
	case string(queue.StatusCompleted):
		if job.Result != nil {
			return "-" + textutil.FormatBytes(job.Result.SizeReduction)
		}
		return "100%"
	case string(queue.StatusFailed):
		if job.ErrorKind != "" {
			return job.ErrorKind
		}
		return "-"
	default:
		return fmt.Sprintf("%d%%", job.Progress)
	}
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDisplayTime(value string) string {
	t := api.ParseTime(value)
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return t.Local().Format("2006-01-02 15:04")
}

func renderJobList(out io.Writer, jobs []api.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprint(out, renderTable(
		[]string{"ID", "User", "File", "Status", "Progress", "Created"},
		buildJobListRows(jobs),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

// renderJobDetail prints one job as aligned key/value lines.
func renderJobDetail(out io.Writer, job api.Job) {
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "%-14s %s\n", label+":", value)
	}

	line("Job", job.ID)
	line("User", job.UserID)
	line("File", displayName(job))
	line("Status", formatStatusLabel(job.Status))
	switch job.Status {
	case string(queue.StatusQueued):
		if job.QueuePosition > 0 {
			line("Position", strconv.Itoa(job.QueuePosition))
		}
	case string(queue.StatusProcessing):
		line("Progress", fmt.Sprintf("%d%%", job.Progress))
	}
	line("Settings", formatSettings(job.Settings))
	line("Created", formatDisplayTime(job.CreatedAt))
	line("Started", formatDisplayTime(job.StartedAt))
	line("Finished", formatDisplayTime(job.FinishedAt))
	if job.ErrorMessage != "" {
		line("Error", fmt.Sprintf("[%s] %s", job.ErrorKind, job.ErrorMessage))
	}
	if r := job.Result; r != nil {
		line("Original", textutil.FormatBytes(r.OriginalSize))
		line("Compressed", textutil.FormatBytes(r.CompressedSize))
		line("Saved", fmt.Sprintf("%s (%.1f%%)", textutil.FormatBytes(r.SizeReduction), r.Ratio))
		line("Elapsed", textutil.FormatSeconds(r.ElapsedSeconds))
		if r.SpeedMBps > 0 {
			line("Speed", fmt.Sprintf("%.2f MB/s", r.SpeedMBps))
		}
		if r.Width > 0 && r.Height > 0 {
			line("Resolution", fmt.Sprintf("%dx%d", r.Width, r.Height))
		}
	}
	line("Delivered", job.DeliveredLocation)
	line("Thumbnail", job.ThumbnailLocation)
}

func formatSettings(s api.Settings) string {
	parts := []string{
		"preset=" + orDash(s.Preset),
		"resolution=" + orDash(s.Resolution),
		"audio=" + orDash(s.AudioBitrate),
		"video=" + orDash(s.VideoBitrate),
	}
	if s.RemovesAudio() {
		parts = append(parts, "no-audio")
	}
	if s.SkipsThumbnail() {
		parts = append(parts, "no-thumbnail")
	}
	return strings.Join(parts, " ")
}

func formatEstimate(seconds int64) string {
	if seconds <= 0 {
		return "under a second"
	}
	return textutil.FormatDuration(time.Duration(seconds) * time.Second)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
