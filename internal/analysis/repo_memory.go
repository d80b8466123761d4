package analysis

import (
	"context"
	"sync"
	"time"

	"talklens-backend/internal/llm"
)

// MemoryRepo is an in-memory implementation of AnalysesRepo.
type MemoryRepo struct {
	mu          sync.RWMutex
	analyses    map[string]Analysis
	byVideo     map[string]string
	emotions    map[string][]EmotionSample
	gestures    map[string][]GestureEvent
	transcripts map[string][]TranscriptSegment
	insights    map[string]llm.Insight
	keyMoments  map[string][]KeyMoment
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		analyses:    make(map[string]Analysis),
		byVideo:     make(map[string]string),
		emotions:    make(map[string][]EmotionSample),
		gestures:    make(map[string][]GestureEvent),
		transcripts: make(map[string][]TranscriptSegment),
		insights:    make(map[string]llm.Insight),
		keyMoments:  make(map[string][]KeyMoment),
	}
}

// Create stores a new analysis.
func (r *MemoryRepo) Create(ctx context.Context, a Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses[a.ID] = a
	r.byVideo[a.VideoID] = a.ID
	return nil
}

// Get returns an analysis by id.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyses[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

// GetByVideo returns the analysis owned by a video.
func (r *MemoryRepo) GetByVideo(ctx context.Context, videoID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byVideo[videoID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return r.analyses[id], nil
}

// UpdateProgress sets the progress percent for an in-flight analysis.
func (r *MemoryRepo) UpdateProgress(ctx context.Context, id string, percent int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status.Terminal() {
		return nil
	}
	a.ProgressPercent = percent
	r.analyses[id] = a
	return nil
}

// MarkProcessing transitions pending to processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status != StatusPending {
		return nil
	}
	a.Status = StatusProcessing
	r.analyses[id] = a
	return nil
}

// SetTerminal records the terminal transition once; later calls are no-ops.
func (r *MemoryRepo) SetTerminal(ctx context.Context, id string, status Status, errorMessage string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status.Terminal() {
		return nil
	}
	a.Status = status
	a.ErrorMessage = errorMessage
	a.CompletedAt = &completedAt
	if status == StatusCompleted {
		a.ProgressPercent = 100
	}
	r.analyses[id] = a
	return nil
}

// AppendEmotions appends emotion samples in order.
func (r *MemoryRepo) AppendEmotions(ctx context.Context, id string, samples []EmotionSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emotions[id] = append(r.emotions[id], samples...)
	return nil
}

// AppendGestures appends gesture events in order.
func (r *MemoryRepo) AppendGestures(ctx context.Context, id string, events []GestureEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gestures[id] = append(r.gestures[id], events...)
	return nil
}

// AppendTranscript appends transcript segments in order.
func (r *MemoryRepo) AppendTranscript(ctx context.Context, id string, segments []TranscriptSegment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts[id] = append(r.transcripts[id], segments...)
	return nil
}

// SaveInsight stores the single insight for an analysis.
func (r *MemoryRepo) SaveInsight(ctx context.Context, id string, insight llm.Insight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.insights[id]; exists {
		return nil
	}
	r.insights[id] = insight
	return nil
}

// SaveKeyMoments stores the derived key moments.
func (r *MemoryRepo) SaveKeyMoments(ctx context.Context, id string, moments []KeyMoment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyMoments[id] = append([]KeyMoment(nil), moments...)
	return nil
}

// ListEmotions returns the emotion stream in append order.
func (r *MemoryRepo) ListEmotions(ctx context.Context, id string) ([]EmotionSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EmotionSample(nil), r.emotions[id]...), nil
}

// ListGestures returns the gesture stream in append order.
func (r *MemoryRepo) ListGestures(ctx context.Context, id string) ([]GestureEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]GestureEvent(nil), r.gestures[id]...), nil
}

// ListTranscript returns the transcript in segment order.
func (r *MemoryRepo) ListTranscript(ctx context.Context, id string) ([]TranscriptSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TranscriptSegment(nil), r.transcripts[id]...), nil
}

// GetInsight returns the stored insight.
func (r *MemoryRepo) GetInsight(ctx context.Context, id string) (llm.Insight, error) {
	if err := ctx.Err(); err != nil {
		return llm.Insight{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	insight, ok := r.insights[id]
	if !ok {
		return llm.Insight{}, ErrNotFound
	}
	return insight, nil
}

// ListKeyMoments returns the persisted key moments.
func (r *MemoryRepo) ListKeyMoments(ctx context.Context, id string) ([]KeyMoment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]KeyMoment(nil), r.keyMoments[id]...), nil
}

var _ AnalysesRepo = (*MemoryRepo)(nil)
