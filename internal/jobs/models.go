package jobs

import "time"

// Status represents the lifecycle of an analysis job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// ValidStatus reports whether a string names a known lifecycle state.
func ValidStatus(value string) bool {
	for _, status := range allStatuses {
		if Status(value) == status {
			return true
		}
	}
	return false
}

// Job is an analysis job persisted in SQLite. ResultJSON holds the assembled
// result document once the job completes.
type Job struct {
	ID              string
	UserID          string
	Status          Status
	DatasetName     string
	CSVFileName     string
	SampleCount     int64
	ModelType       string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	ResultJSON      string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
