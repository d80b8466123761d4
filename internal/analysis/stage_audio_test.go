package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"talklens-backend/internal/speech"
)

func TestNormalizeSegmentsOverlapClamping(t *testing.T) {
	raw := []speech.Segment{
		{Start: 0, End: 5, Text: "first"},
		{Start: 4, End: 8, Text: "second"},
	}
	got, err := normalizeSegments(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	if got[1].Start != 5 {
		t.Errorf("overlapping start must clamp to prior end: got %v, want 5", got[1].Start)
	}
	if got[1].End != 8 {
		t.Errorf("end must be preserved: got %v", got[1].End)
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Errorf("indexes must be sequential: %d, %d", got[0].Index, got[1].Index)
	}
}

func TestNormalizeSegmentsDropsVanishedSpans(t *testing.T) {
	raw := []speech.Segment{
		{Start: 0, End: 5, Text: "kept"},
		{Start: 2, End: 5, Text: "swallowed"},
		{Start: 5, End: 9, Text: "also kept"},
	}
	got, err := normalizeSegments(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected vanished segment to be dropped, got %v", got)
	}
	if got[1].Text != "also kept" {
		t.Errorf("wrong surviving segment: %v", got[1])
	}
	if got[1].Index != 1 {
		t.Errorf("indexes must stay contiguous after a drop: %d", got[1].Index)
	}
}

func TestNormalizeSegmentsRejectsNonMonotonicStarts(t *testing.T) {
	raw := []speech.Segment{
		{Start: 5, End: 8, Text: "later"},
		{Start: 3, End: 6, Text: "earlier"},
	}
	_, err := normalizeSegments(raw)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

type stubMedia struct {
	duration   float64
	audioPath  string
	audioErr   error
	frameErr   error
	frameCalls int
}

func (m *stubMedia) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return m.duration, nil
}

func (m *stubMedia) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if m.audioErr != nil {
		return "", m.audioErr
	}
	if m.audioPath != "" {
		return m.audioPath, nil
	}
	return "/tmp/stub-audio.wav", nil
}

func (m *stubMedia) ExtractFrame(ctx context.Context, videoPath string, atSeconds float64) ([]byte, error) {
	m.frameCalls++
	if m.frameErr != nil {
		return nil, m.frameErr
	}
	return []byte{0xff, 0xd8}, nil
}

type stubTranscriber struct {
	segments  []speech.Segment
	errs      []error
	callCount int
	pingErr   error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, wavPath string) ([]speech.Segment, error) {
	s.callCount++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.segments, nil
}

func (s *stubTranscriber) Ping(ctx context.Context) error { return s.pingErr }

func TestAudioStageRetriesOnceOnTransientError(t *testing.T) {
	stt := &stubTranscriber{
		segments: []speech.Segment{{Start: 0, End: 2, Text: "hello"}},
		errs:     []error{fmt.Errorf("boot: %w", speech.ErrUnavailable)},
	}
	stage := &audioStage{media: &stubMedia{}, stt: stt}

	out, err := stage.run(context.Background(), "job-1", "/tmp/video.mp4", NewProgressLog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.callCount != 2 {
		t.Errorf("capability called %d times, want 2 (one retry)", stt.callCount)
	}
	if len(out.Segments) != 1 {
		t.Errorf("unexpected output %v", out.Segments)
	}
}

func TestAudioStageEscalatesAfterSecondTransientError(t *testing.T) {
	stt := &stubTranscriber{
		errs: []error{
			fmt.Errorf("boot: %w", speech.ErrUnavailable),
			fmt.Errorf("still booting: %w", speech.ErrUnavailable),
		},
	}
	stage := &audioStage{media: &stubMedia{}, stt: stt}

	_, err := stage.run(context.Background(), "job-1", "/tmp/video.mp4", NewProgressLog())
	if !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
	if stt.callCount != 2 {
		t.Errorf("capability called %d times, want exactly 2", stt.callCount)
	}
}

func TestAudioStageSingleCallOnSuccess(t *testing.T) {
	stt := &stubTranscriber{segments: []speech.Segment{{Start: 0, End: 1, Text: "hi"}}}
	stage := &audioStage{media: &stubMedia{}, stt: stt}

	if _, err := stage.run(context.Background(), "job-1", "/tmp/video.mp4", NewProgressLog()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.callCount != 1 {
		t.Errorf("capability called %d times, want 1", stt.callCount)
	}
}
