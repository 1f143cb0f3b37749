package queue

import (
	"time"

	"clipress/internal/settings"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the job counts against the per-user limit.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusProcessing
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, candidate := range allStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// ParseStatus converts user input into a Status.
func ParseStatus(value string) (Status, bool) {
	s := Status(value)
	return s, s.Valid()
}

// Result is the outcome of a completed compression.
type Result struct {
	OriginalSize    int64   `json:"original_size"`
	CompressedSize  int64   `json:"compressed_size"`
	SizeReduction   int64   `json:"size_reduction"`
	Ratio           float64 `json:"ratio"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	SpeedMBps       float64 `json:"speed_mbps"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

// Job is one submitted compression.
type Job struct {
	Seq               int64
	ID                string
	UserID            string
	SourcePath        string
	SourceName        string
	WorkDir           string
	OutputPath        string
	ThumbnailPath     string
	DeliveredLocation string
	Settings          settings.JobSettings
	Status            Status
	Progress          int
	ErrorKind         string
	ErrorMessage      string
	Result            *Result
	CreatedAt         time.Time
	UpdatedAt         time.Time
	StartedAt         *time.Time
	FinishedAt        *time.Time
	LastHeartbeat     *time.Time
}

// User holds per-user defaults and cumulative counters.
type User struct {
	ID              string
	Defaults        *settings.JobSettings
	TotalCompressed int64
	TotalBytesSaved int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Totals aggregates statistics across every user.
type Totals struct {
	Users           int64
	TotalCompressed int64
	TotalBytesSaved int64
}

// HealthSummary counts jobs per status.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
