package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"talklens-backend/internal/llm"
	"talklens-backend/internal/speech"
	"talklens-backend/internal/vision"
)

type stubStore struct{}

func (stubStore) Save(ctx context.Context, videoID, fileName string, r io.Reader) (string, int64, string, error) {
	return videoID + "/" + fileName, 0, "video/mp4", nil
}

func (stubStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("fake video bytes")), nil
}

type stubVideos struct {
	mu       sync.Mutex
	videos   map[string]VideoInfo
	statuses []Status
}

func newStubVideos(infos ...VideoInfo) *stubVideos {
	m := make(map[string]VideoInfo, len(infos))
	for _, v := range infos {
		m[v.ID] = v
	}
	return &stubVideos{videos: m}
}

func (s *stubVideos) GetVideo(ctx context.Context, id string) (VideoInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return VideoInfo{}, errors.New("video not found")
	}
	return v, nil
}

func (s *stubVideos) SetVideoStatus(ctx context.Context, id string, status Status, processedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubVideos) lastStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

type stubLLM struct {
	mu      sync.Mutex
	insight llm.Insight
	err     error
	calls   int
}

func (s *stubLLM) AnalyzeTranscript(ctx context.Context, input llm.AnalyzeInput) (llm.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return llm.Insight{}, s.err
	}
	return s.insight, nil
}

// recordingRepo captures progress percents on top of the memory repo.
type recordingRepo struct {
	*MemoryRepo
	mu       sync.Mutex
	percents []int
}

func (r *recordingRepo) UpdateProgress(ctx context.Context, id string, percent int) error {
	r.mu.Lock()
	r.percents = append(r.percents, percent)
	r.mu.Unlock()
	return r.MemoryRepo.UpdateProgress(ctx, id, percent)
}

type harness struct {
	svc    *Service
	repo   *recordingRepo
	videos *stubVideos
	frames *stubFrames
	stt    *stubTranscriber
	llm    *stubLLM
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := &recordingRepo{MemoryRepo: NewMemoryRepo()}
	videos := newStubVideos(VideoInfo{
		ID:              "vid-1",
		OriginalName:    "talk.mp4",
		StorageKey:      "vid-1/talk.mp4",
		DurationSeconds: 3,
	})
	frames := &stubFrames{observation: vision.Observation{
		Emotion:    "neutral",
		Confidence: 0.9,
	}}
	stt := &stubTranscriber{segments: []speech.Segment{
		{Start: 0, End: 2, Text: "Good morning everyone.", Confidence: 0.97},
	}}
	insight := &stubLLM{insight: llm.Insight{
		MainTopics:        []string{"openings"},
		PersuasionScore:   7,
		OverallTone:       "warm",
		TranscriptSummary: "A short greeting.",
	}}
	svc := NewService(repo, videos, stubStore{}, &stubMedia{duration: 3}, frames, stt, insight, 1.0)
	return &harness{svc: svc, repo: repo, videos: videos, frames: frames, stt: stt, llm: insight}
}

func (h *harness) waitTerminal(t *testing.T, jobID string) Analysis {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		a, err := h.svc.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if a.Status.Terminal() {
			return a
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return Analysis{}
}

func TestOrchestratorHappyPath(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	a := h.waitTerminal(t, jobID)
	if a.Status != StatusCompleted {
		t.Fatalf("status = %v (%s), want completed", a.Status, a.ErrorMessage)
	}
	if a.ProgressPercent != 100 {
		t.Errorf("progress = %d, want 100", a.ProgressPercent)
	}

	result, err := h.svc.Result(context.Background(), jobID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(result.Emotions) != 3 {
		t.Errorf("expected 3 emotion samples, got %d", len(result.Emotions))
	}
	if len(result.Transcript) != 1 {
		t.Errorf("expected 1 transcript segment, got %d", len(result.Transcript))
	}
	if result.Insight.Fallback {
		t.Error("genuine insight must not be tagged fallback")
	}
	if result.Summary.TotalDuration != 3 {
		t.Errorf("summary duration = %v, want 3", result.Summary.TotalDuration)
	}
	if h.videos.lastStatus() != StatusCompleted {
		t.Errorf("video status = %v, want completed", h.videos.lastStatus())
	}
}

func TestOrchestratorDuplicateSubmitExecutesOnce(t *testing.T) {
	h := newHarness(t)
	first, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if first != second {
		t.Fatalf("resubmit returned a new job: %s vs %s", first, second)
	}

	h.waitTerminal(t, first)
	if h.stt.callCount != 1 {
		t.Errorf("transcription ran %d times, want exactly 1", h.stt.callCount)
	}
}

func TestOrchestratorVisualFailureFailsJob(t *testing.T) {
	h := newHarness(t)
	h.frames.errs = []error{
		fmt.Errorf("down: %w", vision.ErrUnavailable),
		fmt.Errorf("down: %w", vision.ErrUnavailable),
	}

	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	a := h.waitTerminal(t, jobID)
	if a.Status != StatusFailed {
		t.Fatalf("status = %v, want failed", a.Status)
	}
	if a.ErrorMessage == "" {
		t.Error("failed job must persist an error message")
	}

	_, err = h.svc.Result(context.Background(), jobID)
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), a.ErrorMessage) {
		t.Errorf("result error %q must carry the stored message %q", err, a.ErrorMessage)
	}
	if h.videos.lastStatus() != StatusFailed {
		t.Errorf("video status = %v, want failed", h.videos.lastStatus())
	}
}

func TestOrchestratorInsightFailureCompletesWithFallback(t *testing.T) {
	h := newHarness(t)
	h.llm.err = errors.New("provider exploded")

	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	a := h.waitTerminal(t, jobID)
	if a.Status != StatusCompleted {
		t.Fatalf("status = %v, want completed despite insight failure", a.Status)
	}

	result, err := h.svc.Result(context.Background(), jobID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !result.Insight.Fallback {
		t.Error("fallback insight must be tagged")
	}
	if result.Insight.PersuasionScore != 5.5 {
		t.Errorf("fallback score = %v, want 5.5", result.Insight.PersuasionScore)
	}
	if len(result.Insight.MainTopics) != 0 {
		t.Errorf("fallback topics must be empty, got %v", result.Insight.MainTopics)
	}
	if h.llm.calls != 1 {
		t.Errorf("insight ran %d times, want exactly 1 (never retried)", h.llm.calls)
	}
}

func TestOrchestratorProgressMonotone(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.waitTerminal(t, jobID)

	h.repo.mu.Lock()
	percents := append([]int(nil), h.repo.percents...)
	h.repo.mu.Unlock()
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}
}

func TestOrchestratorProgressStreamEndsWithSentinel(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.waitTerminal(t, jobID)

	log, err := h.svc.Progress(context.Background(), jobID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	msgs := collect(t, log.Subscribe(context.Background()))
	if len(msgs) == 0 || msgs[len(msgs)-1] != DoneSentinel {
		t.Fatalf("progress must end with the sentinel, got %v", msgs)
	}
	if msgs[0] != "🎬 Processing video: talk.mp4" {
		t.Errorf("unexpected opening message %q", msgs[0])
	}
}

func TestSubmitUnknownVideo(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Submit(context.Background(), "missing")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitCapabilityUnreachable(t *testing.T) {
	h := newHarness(t)
	h.frames.pingErr = fmt.Errorf("refused: %w", vision.ErrUnavailable)

	_, err := h.svc.Submit(context.Background(), "vid-1")
	if !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
}
