package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers for transcript content analysis.
type Client interface {
	AnalyzeTranscript(ctx context.Context, input AnalyzeInput) (Insight, error)
}

// AnalyzeInput captures everything the content-analysis prompt needs.
type AnalyzeInput struct {
	Transcript      string
	DurationSeconds float64
	EmotionCount    int
	GestureCount    int
}

// Insight is the structured result of content analysis. Fallback is set
// when the provider failed and the degraded default was substituted, so
// consumers can always tell genuine analysis from the placeholder.
type Insight struct {
	MainTopics           []string `json:"main_topics"`
	RhetoricalTechniques []string `json:"rhetorical_techniques"`
	PersuasiveElements   []string `json:"persuasive_elements"`
	PersuasionScore      float64  `json:"persuasion_score"`
	OverallTone          string   `json:"overall_tone"`
	TranscriptSummary    string   `json:"transcript_summary"`
	Fallback             bool     `json:"fallback"`
}

// FallbackInsight is the documented degraded value: midpoint score,
// neutral tone, empty lists.
func FallbackInsight() Insight {
	return Insight{
		MainTopics:           []string{},
		RhetoricalTechniques: []string{},
		PersuasiveElements:   []string{},
		PersuasionScore:      5.5,
		OverallTone:          "neutral",
		TranscriptSummary:    "Content analysis was unavailable for this presentation.",
		Fallback:             true,
	}
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is used when no provider is configured. Every call
// errors, so each analysis completes with the fallback insight.
type PlaceholderClient struct{}

func (PlaceholderClient) AnalyzeTranscript(ctx context.Context, input AnalyzeInput) (Insight, error) {
	_ = ctx
	_ = input
	return Insight{}, ErrNotImplemented
}
