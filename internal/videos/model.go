package videos

import "time"

// Status tracks a video through its analysis lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Video represents an uploaded presentation recording.
type Video struct {
	ID              string
	OriginalName    string
	StorageKey      string
	SizeBytes       int64
	DurationSeconds float64
	MimeType        string
	Status          Status
	UploadedAt      time.Time
	ProcessedAt     *time.Time
}
