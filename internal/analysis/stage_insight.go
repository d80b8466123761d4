package analysis

import (
	"context"
	"strings"

	"talklens-backend/internal/llm"
	"talklens-backend/internal/shared/metrics"
	"talklens-backend/internal/shared/telemetry"
)

// insightStage runs content analysis over the completed transcript. It
// never retries and never fails the job: any error is absorbed into the
// documented fallback insight.
type insightStage struct {
	client llm.Client
}

// run takes the audio stage's output as its input type, making the
// transcript dependency explicit.
func (s *insightStage) run(ctx context.Context, jobID string, transcript audioOutput, duration float64, emotionCount, gestureCount int, progress *ProgressLog) llm.Insight {
	progress.Append("🧠 Performing AI content analysis...")

	insight, err := s.client.AnalyzeTranscript(ctx, llm.AnalyzeInput{
		Transcript:      joinTranscript(transcript.Segments),
		DurationSeconds: duration,
		EmotionCount:    emotionCount,
		GestureCount:    gestureCount,
	})
	if err != nil {
		telemetry.Warn("analysis.insight.fallback", map[string]any{
			"job_id": jobID,
			"err":    err.Error(),
		})
		metrics.IncInsightFallback()
		progress.Append("⚠️ AI analysis unavailable, using fallback insights")
		return llm.FallbackInsight()
	}

	progress.Append("✅ AI analysis completed")
	return insight
}

// joinTranscript concatenates segment text in index order with single
// spaces.
func joinTranscript(segments []TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
