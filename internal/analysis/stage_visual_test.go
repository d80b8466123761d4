package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"talklens-backend/internal/vision"
)

type stubFrames struct {
	observation vision.Observation
	errs        []error
	callCount   int
	pingErr     error
}

func (s *stubFrames) AnalyzeFrame(ctx context.Context, frame []byte) (vision.Observation, error) {
	s.callCount++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return vision.Observation{}, err
		}
	}
	return s.observation, nil
}

func (s *stubFrames) Ping(ctx context.Context) error { return s.pingErr }

func TestVisualStageProducesSamplesAndGestures(t *testing.T) {
	frames := &stubFrames{observation: vision.Observation{
		Emotion:    "passionate",
		Confidence: 0.92,
		Gestures:   []string{"pointing"},
	}}
	stage := &visualStage{media: &stubMedia{}, frames: frames, interval: 1.0}

	out, err := stage.run(context.Background(), "job-1", "/tmp/video.mp4", 3, NewProgressLog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Emotions) != 3 {
		t.Fatalf("expected 3 emotion samples for a 3s video at 1s interval, got %d", len(out.Emotions))
	}
	if len(out.Gestures) != 3 {
		t.Fatalf("expected 3 gestures, got %d", len(out.Gestures))
	}
	for i := 1; i < len(out.Emotions); i++ {
		if out.Emotions[i].Timestamp < out.Emotions[i-1].Timestamp {
			t.Fatalf("timestamps must be non-decreasing: %v", out.Emotions)
		}
	}
	if out.Gestures[0].Description != "Pointing gesture to audience" {
		t.Errorf("unexpected gesture description %q", out.Gestures[0].Description)
	}
}

func TestVisualStageRejectsUnknownEmotion(t *testing.T) {
	frames := &stubFrames{observation: vision.Observation{Emotion: "ecstatic", Confidence: 0.9}}
	stage := &visualStage{media: &stubMedia{}, frames: frames, interval: 1.0}

	_, err := stage.run(context.Background(), "job-1", "/tmp/video.mp4", 2, NewProgressLog())
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	if frames.callCount != 1 {
		t.Errorf("label violations must not be retried, got %d calls", frames.callCount)
	}
}

func TestVisualStageRejectsUnknownGesture(t *testing.T) {
	frames := &stubFrames{observation: vision.Observation{
		Emotion:    "neutral",
		Confidence: 0.9,
		Gestures:   []string{"cartwheel"},
	}}
	stage := &visualStage{media: &stubMedia{}, frames: frames, interval: 1.0}

	_, err := stage.run(context.Background(), "job-1", "/tmp/video.mp4", 2, NewProgressLog())
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestVisualStageRetriesTransientFrameFailure(t *testing.T) {
	frames := &stubFrames{
		observation: vision.Observation{Emotion: "neutral", Confidence: 0.9},
		errs:        []error{fmt.Errorf("model loading: %w", vision.ErrUnavailable)},
	}
	stage := &visualStage{media: &stubMedia{}, frames: frames, interval: 1.0}

	out, err := stage.run(context.Background(), "job-1", "/tmp/video.mp4", 1, NewProgressLog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frames.callCount != 2 {
		t.Errorf("capability called %d times, want 2", frames.callCount)
	}
	if len(out.Emotions) != 1 {
		t.Errorf("unexpected output %v", out.Emotions)
	}
}
