package videos

import "time"

// VideoResponse is the outward-facing representation of a video.
type VideoResponse struct {
	VideoID         string     `json:"videoId"`
	FileName        string     `json:"fileName"`
	MimeType        string     `json:"mimeType"`
	SizeBytes       int64      `json:"sizeBytes"`
	DurationSeconds float64    `json:"durationSeconds"`
	Status          string     `json:"status"`
	UploadedAt      time.Time  `json:"uploadedAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
}

func toResponse(v Video) VideoResponse {
	return VideoResponse{
		VideoID:         v.ID,
		FileName:        v.OriginalName,
		MimeType:        v.MimeType,
		SizeBytes:       v.SizeBytes,
		DurationSeconds: v.DurationSeconds,
		Status:          string(v.Status),
		UploadedAt:      v.UploadedAt,
		ProcessedAt:     v.ProcessedAt,
	}
}
