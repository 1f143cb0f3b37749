package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Settings is the transport form of a job settings bundle. Empty strings
// and absent flags mean "use the defaults".
type Settings struct {
	Preset            string `json:"preset,omitempty"`
	Resolution        string `json:"resolution,omitempty"`
	AudioBitrate      string `json:"audioBitrate,omitempty"`
	VideoBitrate      string `json:"videoBitrate,omitempty"`
	RemoveAudio       *bool  `json:"removeAudio,omitempty"`
	GenerateThumbnail *bool  `json:"generateThumbnail,omitempty"`
}

// RemovesAudio reports the removeAudio flag, treating absent as false.
func (s Settings) RemovesAudio() bool { return s.RemoveAudio != nil && *s.RemoveAudio }

// SkipsThumbnail reports whether generateThumbnail is explicitly false.
func (s Settings) SkipsThumbnail() bool {
	return s.GenerateThumbnail != nil && !*s.GenerateThumbnail
}

// JobResult reports the size accounting of a completed job.
type JobResult struct {
	OriginalSize    int64   `json:"originalSize"`
	CompressedSize  int64   `json:"compressedSize"`
	SizeReduction   int64   `json:"sizeReduction"`
	Ratio           float64 `json:"ratio"`
	ElapsedSeconds  float64 `json:"elapsedSeconds"`
	SpeedMBps       float64 `json:"speedMBps"`
	DurationSeconds float64 `json:"durationSeconds"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

// Job describes a compression job in a transport-friendly format.
type Job struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	SourceName        string     `json:"sourceName"`
	SourcePath        string     `json:"sourcePath"`
	Status            string     `json:"status"`
	Progress          int        `json:"progress"`
	QueuePosition     int        `json:"queuePosition,omitempty"`
	Settings          Settings   `json:"settings"`
	Result            *JobResult `json:"result,omitempty"`
	DeliveredLocation string     `json:"deliveredLocation,omitempty"`
	ThumbnailLocation string     `json:"thumbnailLocation,omitempty"`
	ErrorKind         string     `json:"errorKind,omitempty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
	CreatedAt         string     `json:"createdAt,omitempty"`
	UpdatedAt         string     `json:"updatedAt,omitempty"`
	StartedAt         string     `json:"startedAt,omitempty"`
	FinishedAt        string     `json:"finishedAt,omitempty"`
	LastHeartbeat     string     `json:"lastHeartbeat,omitempty"`
}

// SlotStatus names the job a slot is running.
type SlotStatus struct {
	Slot  int    `json:"slot"`
	JobID string `json:"jobId"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	Slots      int            `json:"slots"`
	Active     []SlotStatus   `json:"active"`
	Pending    int            `json:"pending"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastJob    *Job           `json:"lastJob,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is one readiness check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	APIBind      string             `json:"apiBind,omitempty"`
	Delivery     string             `json:"delivery"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	EventSinks   []CheckResult      `json:"eventSinks,omitempty"`
}

// UserStats reports a user's lifetime counters and stored defaults.
type UserStats struct {
	UserID          string    `json:"userId"`
	TotalCompressed int64     `json:"totalCompressed"`
	TotalBytesSaved int64     `json:"totalBytesSaved"`
	Defaults        *Settings `json:"defaults,omitempty"`
	ActiveJobs      int       `json:"activeJobs"`
}

// Totals aggregates counters across every user.
type Totals struct {
	Users           int64 `json:"users"`
	TotalCompressed int64 `json:"totalCompressed"`
	TotalBytesSaved int64 `json:"totalBytesSaved"`
}

// Event is one job lifecycle event.
type Event struct {
	Type       string     `json:"type"`
	JobID      string     `json:"jobId"`
	UserID     string     `json:"userId"`
	SourceName string     `json:"sourceName,omitempty"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress"`
	Result     *JobResult `json:"result,omitempty"`
	Location   string     `json:"location,omitempty"`
	ErrorKind  string     `json:"errorKind,omitempty"`
	Error      string     `json:"error,omitempty"`
	Time       string     `json:"time"`
}

// MediaInfo is the transport form of a probe result.
type MediaInfo struct {
	DurationSeconds float64 `json:"durationSeconds"`
	SizeBytes       int64   `json:"sizeBytes"`
	FormatName      string  `json:"formatName,omitempty"`
	BitRate         int64   `json:"bitRate,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	VideoCodec      string  `json:"videoCodec,omitempty"`
	AudioCodec      string  `json:"audioCodec,omitempty"`
}

// Recommendation is a suggested settings bundle for a probed source.
type Recommendation struct {
	Info            MediaInfo `json:"info"`
	Settings        Settings  `json:"settings"`
	EstimateSeconds int64     `json:"estimateSeconds"`
}

// SubmitRequest is the payload of POST /api/jobs.
type SubmitRequest struct {
	UserID     string    `json:"userId"`
	SourcePath string    `json:"sourcePath"`
	SourceName string    `json:"sourceName,omitempty"`
	Settings   *Settings `json:"settings,omitempty"`
}

// SubmitResponse returns the admitted job id.
type SubmitResponse struct {
	JobID           string `json:"jobId"`
	QueuePosition   int    `json:"queuePosition,omitempty"`
	EstimateSeconds int64  `json:"estimateSeconds"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// ErrorResponse is the body of every non-2xx HTTP response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DatabaseHealth reports queue database diagnostics.
type DatabaseHealth struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	SchemaVersion    int      `json:"schemaVersion"`
	TableExists      bool     `json:"tableExists"`
	ColumnsPresent   []string `json:"columnsPresent,omitempty"`
	MissingColumns   []string `json:"missingColumns,omitempty"`
	IntegrityCheck   bool     `json:"integrityCheck"`
	TotalJobs        int      `json:"totalJobs"`
	Error            string   `json:"error,omitempty"`
}

// StatsResponse combines cross-user totals with queue counts.
type StatsResponse struct {
	Totals Totals         `json:"totals"`
	Queue  map[string]int `json:"queue"`
}
