package openai

import (
	"fmt"
	"strings"

	"talklens-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	systemPrompt = "You are an expert in rhetoric and communication analysis. " +
		"Respond with JSON only. Output must match the schema exactly."
	systemPromptFixJSON = "You are a JSON repair tool. Return only valid JSON that matches the schema exactly."
)

// BuildPrompt creates the chat messages for a content-analysis request.
func BuildPrompt(input llm.AnalyzeInput) []Message {
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(input)},
	}
}

func buildUserPrompt(input llm.AnalyzeInput) string {
	var b strings.Builder
	b.WriteString("Analyze the following presentation transcript and provide insights.\n\n")
	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(input.Transcript)
	b.WriteString("\n\nDELIVERY CONTEXT: the presentation runs ")
	fmt.Fprintf(&b, "%.0f seconds; %d emotion samples and %d gestures were detected.\n\n", input.DurationSeconds, input.EmotionCount, input.GestureCount)
	b.WriteString(`Cover:

1. Main Topics and Themes (3-5 key topics)
2. Rhetorical Techniques Used (list specific techniques)
3. Persuasive Elements (what makes it compelling)
4. Persuasion Score (rate 1-10)
5. Overall Tone (describe in one sentence)
6. Executive Summary (one concise paragraph, 4-5 sentences, covering what the presentation is about and its overall impact)

Format your response as JSON with these keys:
- main_topics: list of strings
- rhetorical_techniques: list of strings
- persuasive_elements: list of strings
- persuasion_score: number (1-10)
- overall_tone: string
- transcript_summary: string
`)
	return b.String()
}

func buildFixPrompt(raw []byte) []Message {
	return []Message{
		{Role: "system", Content: systemPromptFixJSON},
		{Role: "user", Content: "Repair the following output so it is valid JSON with keys main_topics, rhetorical_techniques, persuasive_elements, persuasion_score, overall_tone, transcript_summary. Return only the JSON.\n\n" + string(raw)},
	}
}
