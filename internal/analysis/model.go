package analysis

import (
	"time"

	"talklens-backend/internal/llm"
)

// Status tracks a job through its state machine. Terminal states are
// immutable once reached.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Analysis is one job over one video. The analysis id doubles as the
// job id exposed to clients.
type Analysis struct {
	ID              string
	VideoID         string
	Status          Status
	ProgressPercent int
	ErrorMessage    string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// EmotionSample is one point of the facial-emotion timeline.
type EmotionSample struct {
	Timestamp  float64 `json:"time"`
	Emotion    Emotion `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// GestureEvent is one detected gesture.
type GestureEvent struct {
	Timestamp   float64     `json:"time"`
	Type        GestureType `json:"type"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
}

// TranscriptSegment is one contiguous span of transcribed speech.
// Segments are ordered by index with non-overlapping time ranges.
type TranscriptSegment struct {
	Index      int     `json:"index"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// KeyMoment is a derived highlight on the merged timeline.
type KeyMoment struct {
	Timestamp   float64    `json:"time"`
	Description string     `json:"description"`
	Kind        MomentKind `json:"type"`
}

// Summary is the derived roll-up of one completed analysis.
type Summary struct {
	TotalDuration  float64     `json:"total_duration"`
	EmotionalRange []Emotion   `json:"emotional_range"`
	KeyMoments     []KeyMoment `json:"key_moments"`
	TopThemes      []string    `json:"top_themes"`
}

// Result is the full payload returned for a completed analysis.
type Result struct {
	Emotions   []EmotionSample     `json:"emotions"`
	Gestures   []GestureEvent      `json:"gestures"`
	Transcript []TranscriptSegment `json:"transcript"`
	Summary    Summary             `json:"summary"`
	Insight    llm.Insight         `json:"llm_insights"`
}

// VideoInfo is the slice of the video record the orchestrator needs.
type VideoInfo struct {
	ID              string
	OriginalName    string
	StorageKey      string
	DurationSeconds float64
}
