package analysis

import (
	"context"
	"fmt"

	"talklens-backend/internal/media"
	"talklens-backend/internal/vision"
)

// visualOutput is the visual stage's typed result.
type visualOutput struct {
	Emotions []EmotionSample
	Gestures []GestureEvent
}

// visualStage samples frames at a fixed interval and runs the visual
// capability on each one.
type visualStage struct {
	media    MediaProcessor
	frames   FrameAnalyzer
	interval float64
}

func (s *visualStage) run(ctx context.Context, jobID, videoPath string, duration float64, progress *ProgressLog) (visualOutput, error) {
	progress.Append("😀 Analyzing emotions and gestures...")

	var out visualOutput
	prevTS := -1.0
	for _, ts := range media.SampleTimestamps(duration, s.interval) {
		frame, err := s.media.ExtractFrame(ctx, videoPath, ts)
		if err != nil {
			return visualOutput{}, fmt.Errorf("visual stage: %w", err)
		}

		obs, err := s.analyzeFrame(ctx, jobID, frame)
		if err != nil {
			return visualOutput{}, fmt.Errorf("visual stage: %w", err)
		}

		// The sampler produces ascending instants; a regression here
		// means the stage broke its own output contract.
		if ts < prevTS {
			return visualOutput{}, fmt.Errorf("%w: visual timestamp %.2f after %.2f", ErrInvariantViolation, ts, prevTS)
		}
		prevTS = ts

		emotion, err := ParseEmotion(obs.Emotion)
		if err != nil {
			return visualOutput{}, fmt.Errorf("%w: visual stage: %v", ErrInvariantViolation, err)
		}
		out.Emotions = append(out.Emotions, EmotionSample{
			Timestamp:  ts,
			Emotion:    emotion,
			Confidence: obs.Confidence,
		})

		for _, raw := range obs.Gestures {
			gesture, err := ParseGesture(raw)
			if err != nil {
				return visualOutput{}, fmt.Errorf("%w: visual stage: %v", ErrInvariantViolation, err)
			}
			out.Gestures = append(out.Gestures, GestureEvent{
				Timestamp:   ts,
				Type:        gesture,
				Description: gesture.Describe(),
				Confidence:  obs.Confidence,
			})
		}
	}

	progress.Append(fmt.Sprintf("✅ Detected %d emotion samples", len(out.Emotions)))
	progress.Append(fmt.Sprintf("✅ Detected %d gestures", len(out.Gestures)))
	return out, nil
}

func (s *visualStage) analyzeFrame(ctx context.Context, jobID string, frame []byte) (obs vision.Observation, err error) {
	err = callWithRetry(ctx, jobID, func() error {
		var callErr error
		obs, callErr = s.frames.AnalyzeFrame(ctx, frame)
		return callErr
	})
	return obs, err
}
