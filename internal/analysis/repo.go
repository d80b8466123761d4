package analysis

import (
	"context"
	"time"

	"talklens-backend/internal/llm"
)

// AnalysesRepo defines persistence for analyses and their streams.
// Stream appends are ordered per stream; historical rows are never
// mutated, only the job's own status and progress fields change.
type AnalysesRepo interface {
	Create(ctx context.Context, a Analysis) error
	Get(ctx context.Context, id string) (Analysis, error)
	GetByVideo(ctx context.Context, videoID string) (Analysis, error)
	UpdateProgress(ctx context.Context, id string, percent int) error
	// SetTerminal records the completed/failed transition exactly once.
	SetTerminal(ctx context.Context, id string, status Status, errorMessage string, completedAt time.Time) error
	MarkProcessing(ctx context.Context, id string) error

	AppendEmotions(ctx context.Context, id string, samples []EmotionSample) error
	AppendGestures(ctx context.Context, id string, events []GestureEvent) error
	AppendTranscript(ctx context.Context, id string, segments []TranscriptSegment) error
	SaveInsight(ctx context.Context, id string, insight llm.Insight) error
	SaveKeyMoments(ctx context.Context, id string, moments []KeyMoment) error

	ListEmotions(ctx context.Context, id string) ([]EmotionSample, error)
	ListGestures(ctx context.Context, id string) ([]GestureEvent, error)
	ListTranscript(ctx context.Context, id string) ([]TranscriptSegment, error)
	GetInsight(ctx context.Context, id string) (llm.Insight, error)
	ListKeyMoments(ctx context.Context, id string) ([]KeyMoment, error)
}
