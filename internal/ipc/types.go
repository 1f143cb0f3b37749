package ipc

import "clipress/internal/api"

// ServiceName is the RPC service the daemon registers.
const ServiceName = "Clipress"

// StartRequest triggers job processing.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest halts job processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Job mirrors the HTTP API job DTO for IPC callers.
type Job = api.Job

// StatusResponse represents combined daemon and engine status.
type StatusResponse = api.DaemonStatus

// SubmitRequest queues a compression job.
type SubmitRequest = api.SubmitRequest

// SubmitResponse reports the admitted job.
type SubmitResponse = api.SubmitResponse

// CancelRequest cancels a queued or processing job.
type CancelRequest struct {
	JobID string `json:"job_id"`
}

// CancelResponse carries the job after cancellation.
type CancelResponse struct {
	Job Job `json:"job"`
}

// JobShowRequest fetches a single job.
type JobShowRequest struct {
	JobID string `json:"job_id"`
}

// JobShowResponse contains one job.
type JobShowResponse struct {
	Job Job `json:"job"`
}

// JobListRequest filters the job listing by status and user.
type JobListRequest struct {
	Statuses []string `json:"statuses"`
	UserID   string   `json:"user_id"`
}

// JobListResponse contains jobs, newest first.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// UserQueueRequest lists a user's queued and processing jobs.
type UserQueueRequest struct {
	UserID string `json:"user_id"`
}

// UserQueueResponse contains jobs in admission order.
type UserQueueResponse struct {
	Jobs []Job `json:"jobs"`
}

// UserStatsRequest fetches a user's counters.
type UserStatsRequest struct {
	UserID string `json:"user_id"`
}

// UserStatsResponse reports a user's counters and defaults.
type UserStatsResponse = api.UserStats

// SetUserDefaultsRequest stores a user's default settings.
type SetUserDefaultsRequest struct {
	UserID   string       `json:"user_id"`
	Settings api.Settings `json:"settings"`
}

// SetUserDefaultsResponse returns the stored, fully resolved defaults.
type SetUserDefaultsResponse struct {
	Settings api.Settings `json:"settings"`
}

// TotalsRequest fetches cross-user totals.
type TotalsRequest struct{}

// TotalsResponse combines totals with queue counts.
type TotalsResponse = api.StatsResponse

// QueueClearRequest removes finished jobs, or every job when All is set.
type QueueClearRequest struct {
	All bool `json:"all"`
}

// QueueClearResponse reports removed jobs.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueHealthRequest fetches aggregate queue counts.
type QueueHealthRequest struct{}

// QueueHealthResponse contains counts per status.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// DatabaseHealthRequest fetches database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database diagnostics.
type DatabaseHealthResponse = api.DatabaseHealth
