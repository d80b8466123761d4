package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"talklens-backend/internal/llm"
	"talklens-backend/internal/media"
	"talklens-backend/internal/shared/metrics"
	"talklens-backend/internal/shared/storage/object"
	"talklens-backend/internal/shared/telemetry"
)

// Service is the pipeline orchestrator. It owns the job state machine,
// the per-job execution guard and the per-job progress logs.
type Service struct {
	Repo   AnalysesRepo
	Videos VideoSource
	Store  object.ObjectStore
	Media  MediaProcessor
	Frames FrameAnalyzer
	STT    Transcriber
	LLM    llm.Client

	// FrameInterval is the visual sampling interval in seconds.
	FrameInterval float64

	mu       sync.Mutex
	inflight map[string]struct{}
	logs     map[string]*ProgressLog

	now func() time.Time
}

// NewService constructs the orchestrator.
func NewService(repo AnalysesRepo, videos VideoSource, store object.ObjectStore, proc MediaProcessor, frames FrameAnalyzer, stt Transcriber, llmClient llm.Client, frameInterval float64) *Service {
	if frameInterval <= 0 {
		frameInterval = 1.0
	}
	if llmClient == nil {
		llmClient = llm.PlaceholderClient{}
	}
	return &Service{
		Repo:          repo,
		Videos:        videos,
		Store:         store,
		Media:         proc,
		Frames:        frames,
		STT:           stt,
		LLM:           llmClient,
		FrameInterval: frameInterval,
		inflight:      make(map[string]struct{}),
		logs:          make(map[string]*ProgressLog),
		now:           time.Now,
	}
}

// Submit validates the stored video, creates the job and starts it in
// the background. Submitting a video that already has a job returns the
// existing job id without a second execution.
func (s *Service) Submit(ctx context.Context, videoID string) (string, error) {
	video, err := s.Videos.GetVideo(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("%w: video %s: %v", ErrInvalidInput, videoID, err)
	}
	if video.DurationSeconds <= 0 {
		return "", fmt.Errorf("%w: video %s has no duration", ErrInvalidInput, videoID)
	}

	if err := s.Frames.Ping(ctx); err != nil {
		return "", fmt.Errorf("%w: vision: %v", ErrCapabilityUnavailable, err)
	}
	if err := s.STT.Ping(ctx); err != nil {
		return "", fmt.Errorf("%w: speech: %v", ErrCapabilityUnavailable, err)
	}

	if existing, err := s.Repo.GetByVideo(ctx, videoID); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	job := Analysis{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		Status:    StatusPending,
		StartedAt: s.now().UTC(),
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return "", err
	}

	if !s.tryAcquire(job.ID) {
		return job.ID, nil
	}
	log := s.logFor(job.ID)

	go s.runJob(job.ID, video, log)

	telemetry.Info("analysis.submitted", map[string]any{
		"job_id":   job.ID,
		"video_id": videoID,
	})
	return job.ID, nil
}

// Status returns the job's state machine position.
func (s *Service) Status(ctx context.Context, jobID string) (Analysis, error) {
	return s.Repo.Get(ctx, jobID)
}

// Result returns the full payload for a completed job. Before the
// terminal state it returns ErrNotReady; for failed jobs the persisted
// error message is surfaced verbatim.
func (s *Service) Result(ctx context.Context, jobID string) (Result, error) {
	a, err := s.Repo.Get(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	switch a.Status {
	case StatusFailed:
		return Result{}, fmt.Errorf("%w: %s", ErrAnalysisFailed, a.ErrorMessage)
	case StatusCompleted:
	default:
		return Result{}, ErrNotReady
	}

	emotions, err := s.Repo.ListEmotions(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	gestures, err := s.Repo.ListGestures(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	transcript, err := s.Repo.ListTranscript(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	insight, err := s.Repo.GetInsight(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	moments, err := s.Repo.ListKeyMoments(ctx, jobID)
	if err != nil {
		return Result{}, err
	}

	duration := 0.0
	if video, err := s.Videos.GetVideo(ctx, a.VideoID); err == nil {
		duration = video.DurationSeconds
	}

	summary := BuildSummary(duration, emotions, gestures, insight.MainTopics)
	summary.KeyMoments = moments

	return Result{
		Emotions:   orEmptyEmotions(emotions),
		Gestures:   orEmptyGestures(gestures),
		Transcript: orEmptyTranscript(transcript),
		Summary:    summary,
		Insight:    insight,
	}, nil
}

// Progress returns the job's progress log. For jobs whose log is gone
// (terminal before this process started) a closed log carrying the
// final status is synthesized so subscribers still see the sentinel.
func (s *Service) Progress(ctx context.Context, jobID string) (*ProgressLog, error) {
	s.mu.Lock()
	if log, ok := s.logs[jobID]; ok {
		s.mu.Unlock()
		return log, nil
	}
	s.mu.Unlock()

	a, err := s.Repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	log := NewProgressLog()
	if a.Status == StatusFailed {
		log.Append("❌ Error processing video: " + a.ErrorMessage)
	} else if a.Status == StatusCompleted {
		log.Append("✅ Analysis completed successfully!")
	}
	if a.Status.Terminal() {
		log.Close()
	}
	return log, nil
}

func (s *Service) tryAcquire(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[jobID]; ok {
		return false
	}
	s.inflight[jobID] = struct{}{}
	return true
}

func (s *Service) release(jobID string) {
	s.mu.Lock()
	delete(s.inflight, jobID)
	s.mu.Unlock()
}

func (s *Service) logFor(jobID string) *ProgressLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log, ok := s.logs[jobID]; ok {
		return log
	}
	log := NewProgressLog()
	s.logs[jobID] = log
	return log
}

// runJob executes the whole pipeline for one job. It runs on a
// background context: clients that stop listening never cancel the job.
func (s *Service) runJob(jobID string, video VideoInfo, progress *ProgressLog) {
	ctx := context.Background()
	started := s.now()
	defer s.release(jobID)
	defer progress.Close()

	metrics.IncJobStarted()
	if err := s.Repo.MarkProcessing(ctx, jobID); err != nil {
		s.fail(ctx, jobID, video.ID, progress, fmt.Errorf("mark processing: %w", err))
		return
	}
	_ = s.Videos.SetVideoStatus(ctx, video.ID, StatusProcessing, nil)

	progress.Append("🎬 Processing video: " + video.OriginalName)
	advance := s.progressAdvancer(ctx, jobID)
	advance(5)

	videoPath, err := media.Materialize(ctx, s.Store, video.StorageKey)
	if err != nil {
		s.fail(ctx, jobID, video.ID, progress, err)
		return
	}
	defer os.Remove(videoPath)
	advance(10)

	visual := &visualStage{media: s.Media, frames: s.Frames, interval: s.FrameInterval}
	audio := &audioStage{media: s.Media, stt: s.STT}

	var (
		wg        sync.WaitGroup
		visualOut visualOutput
		visualErr error
		audioOut  audioOutput
		audioErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stageStart := s.now()
		visualOut, visualErr = visual.run(ctx, jobID, videoPath, video.DurationSeconds, progress)
		metrics.ObserveStageDurationMs(float64(s.now().Sub(stageStart).Milliseconds()))
		if visualErr == nil {
			if err := s.Repo.AppendEmotions(ctx, jobID, visualOut.Emotions); err != nil {
				visualErr = err
				return
			}
			if err := s.Repo.AppendGestures(ctx, jobID, visualOut.Gestures); err != nil {
				visualErr = err
				return
			}
			advance(45)
		}
	}()
	go func() {
		defer wg.Done()
		stageStart := s.now()
		audioOut, audioErr = audio.run(ctx, jobID, videoPath, progress)
		metrics.ObserveStageDurationMs(float64(s.now().Sub(stageStart).Milliseconds()))
		if audioErr == nil {
			if err := s.Repo.AppendTranscript(ctx, jobID, audioOut.Segments); err != nil {
				audioErr = err
				return
			}
			advance(70)
		}
	}()
	wg.Wait()

	if visualErr != nil {
		s.fail(ctx, jobID, video.ID, progress, visualErr)
		return
	}
	if audioErr != nil {
		s.fail(ctx, jobID, video.ID, progress, audioErr)
		return
	}

	// Insight strictly follows the completed transcript and never fails
	// the job.
	insight := (&insightStage{client: s.LLM}).run(ctx, jobID, audioOut, video.DurationSeconds,
		len(visualOut.Emotions), len(visualOut.Gestures), progress)
	if err := s.Repo.SaveInsight(ctx, jobID, insight); err != nil {
		s.fail(ctx, jobID, video.ID, progress, err)
		return
	}
	advance(85)

	progress.Append("🔗 Correlating multimodal data...")
	summary := BuildSummary(video.DurationSeconds, visualOut.Emotions, visualOut.Gestures, insight.MainTopics)
	if err := s.Repo.SaveKeyMoments(ctx, jobID, summary.KeyMoments); err != nil {
		s.fail(ctx, jobID, video.ID, progress, err)
		return
	}
	advance(95)

	completedAt := s.now().UTC()
	if err := s.Repo.SetTerminal(ctx, jobID, StatusCompleted, "", completedAt); err != nil {
		s.fail(ctx, jobID, video.ID, progress, err)
		return
	}
	_ = s.Videos.SetVideoStatus(ctx, video.ID, StatusCompleted, &completedAt)
	progress.Append("✅ Analysis completed successfully!")

	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(float64(s.now().Sub(started).Milliseconds()))
	telemetry.Info("analysis.completed", map[string]any{
		"job_id":      jobID,
		"video_id":    video.ID,
		"emotions":    len(visualOut.Emotions),
		"gestures":    len(visualOut.Gestures),
		"segments":    len(audioOut.Segments),
		"fallback":    insight.Fallback,
		"duration_ms": s.now().Sub(started).Milliseconds(),
	})
}

// progressAdvancer returns a monotone progress setter; concurrent stages
// can race on checkpoints and a lower one must never overwrite a higher.
func (s *Service) progressAdvancer(ctx context.Context, jobID string) func(int) {
	var mu sync.Mutex
	current := 0
	return func(p int) {
		mu.Lock()
		defer mu.Unlock()
		if p <= current {
			return
		}
		current = p
		if err := s.Repo.UpdateProgress(ctx, jobID, p); err != nil {
			telemetry.Warn("analysis.progress.update_failed", map[string]any{
				"job_id": jobID,
				"err":    err.Error(),
			})
		}
	}
}

func (s *Service) fail(ctx context.Context, jobID, videoID string, progress *ProgressLog, cause error) {
	msg := cause.Error()
	progress.Append("❌ Error processing video: " + msg)

	failedAt := s.now().UTC()
	if err := s.Repo.SetTerminal(ctx, jobID, StatusFailed, msg, failedAt); err != nil {
		telemetry.Error("analysis.fail.persist", map[string]any{"job_id": jobID, "err": err.Error()})
	}
	_ = s.Videos.SetVideoStatus(ctx, videoID, StatusFailed, &failedAt)

	metrics.IncJobFailed()
	telemetry.Error("analysis.failed", map[string]any{
		"job_id":   jobID,
		"video_id": videoID,
		"err":      msg,
	})
}

func orEmptyEmotions(in []EmotionSample) []EmotionSample {
	if in == nil {
		return []EmotionSample{}
	}
	return in
}

func orEmptyGestures(in []GestureEvent) []GestureEvent {
	if in == nil {
		return []GestureEvent{}
	}
	return in
}

func orEmptyTranscript(in []TranscriptSegment) []TranscriptSegment {
	if in == nil {
		return []TranscriptSegment{}
	}
	return in
}
