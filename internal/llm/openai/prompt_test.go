package openai

import (
	"strings"
	"testing"

	"talklens-backend/internal/llm"
)

func TestBuildPrompt(t *testing.T) {
	input := llm.AnalyzeInput{
		Transcript:      "The future is already here.",
		DurationSeconds: 75,
		EmotionCount:    12,
		GestureCount:    3,
	}
	messages := BuildPrompt(input)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "system" || messages[1].Role != "user" {
		t.Fatalf("unexpected roles %q/%q", messages[0].Role, messages[1].Role)
	}
	user := messages[1].Content
	for _, want := range []string{
		"The future is already here.",
		"persuasion_score",
		"transcript_summary",
		"75 seconds",
		"12 emotion samples",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

func TestBuildFixPromptCarriesRawOutput(t *testing.T) {
	messages := buildFixPrompt([]byte(`{"main_topics": [`))
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if !strings.Contains(messages[1].Content, `{"main_topics": [`) {
		t.Error("fix prompt does not include the broken output")
	}
}
