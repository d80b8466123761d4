package analysis

import (
	"context"
	"time"

	"talklens-backend/internal/speech"
	"talklens-backend/internal/vision"
)

// FrameAnalyzer is the visual capability: one frame in, one observation
// out.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, frame []byte) (vision.Observation, error)
	Ping(ctx context.Context) error
}

// Transcriber is the speech capability: whole audio track in, ordered
// segments out.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) ([]speech.Segment, error)
	Ping(ctx context.Context) error
}

// MediaProcessor covers the local ffmpeg operations the stages need.
type MediaProcessor interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
	ExtractFrame(ctx context.Context, videoPath string, atSeconds float64) ([]byte, error)
}

// VideoSource is the orchestrator's view of the video catalogue. The
// orchestrator is the only writer of video status.
type VideoSource interface {
	GetVideo(ctx context.Context, id string) (VideoInfo, error)
	SetVideoStatus(ctx context.Context, id string, status Status, processedAt *time.Time) error
}
