package analysis

import (
	"fmt"
	"sort"
)

// RecencyWindow is the fixed display window during which a gesture
// counts as active after its timestamp.
const RecencyWindow = 10.0

// combineWindow is the maximum distance between an emotion change and a
// gesture for them to merge into one combined key moment.
const combineWindow = 1.0

// topThemeLimit caps the themes surfaced in the summary; the full list
// stays on the insight record.
const topThemeLimit = 5

// CurrentEmotionAt returns the emotion in effect at time t: the sample
// with the greatest timestamp not after t. The timeline is a
// right-continuous step function, never interpolated; with no sample at
// or before t the neutral default applies.
func CurrentEmotionAt(samples []EmotionSample, t float64) Emotion {
	current := EmotionNeutral
	for _, s := range samples {
		if s.Timestamp > t {
			break
		}
		current = s.Emotion
	}
	return current
}

// ActiveGesturesAt returns every gesture whose recency window covers t.
func ActiveGesturesAt(events []GestureEvent, t float64) []GestureEvent {
	var active []GestureEvent
	for _, g := range events {
		if t >= g.Timestamp && t < g.Timestamp+RecencyWindow {
			active = append(active, g)
		}
	}
	return active
}

// ExtractKeyMoments derives the highlight list: every emotion change and
// every gesture become candidates; an emotion change and a gesture
// within one second of each other merge into a single combined moment.
// The output is sorted by timestamp ascending and fully deterministic.
func ExtractKeyMoments(samples []EmotionSample, events []GestureEvent) []KeyMoment {
	type candidate struct {
		ts          float64
		description string
		kind        MomentKind
		merged      bool
	}

	var emotionChanges []candidate
	for i, s := range samples {
		if i == 0 || s.Emotion == samples[i-1].Emotion {
			continue
		}
		emotionChanges = append(emotionChanges, candidate{
			ts:          s.Timestamp,
			description: fmt.Sprintf("Shift to %s emotion", s.Emotion),
			kind:        MomentEmotion,
		})
	}

	gestures := make([]candidate, 0, len(events))
	for _, g := range events {
		gestures = append(gestures, candidate{
			ts:          g.Timestamp,
			description: g.Description,
			kind:        MomentGesture,
		})
	}

	var moments []KeyMoment
	for i := range emotionChanges {
		ec := &emotionChanges[i]
		for j := range gestures {
			g := &gestures[j]
			if g.merged {
				continue
			}
			if distance(ec.ts, g.ts) <= combineWindow {
				moments = append(moments, KeyMoment{
					Timestamp:   ec.ts,
					Description: ec.description + "; " + g.description,
					Kind:        MomentCombined,
				})
				ec.merged = true
				g.merged = true
				break
			}
		}
		if !ec.merged {
			moments = append(moments, KeyMoment{Timestamp: ec.ts, Description: ec.description, Kind: MomentEmotion})
		}
	}
	for _, g := range gestures {
		if !g.merged {
			moments = append(moments, KeyMoment{Timestamp: g.ts, Description: g.description, Kind: MomentGesture})
		}
	}

	sort.SliceStable(moments, func(i, j int) bool {
		return moments[i].Timestamp < moments[j].Timestamp
	})
	return moments
}

// EmotionalRange returns the distinct emotions observed, in order of
// first occurrence.
func EmotionalRange(samples []EmotionSample) []Emotion {
	seen := make(map[Emotion]struct{}, len(samples))
	var out []Emotion
	for _, s := range samples {
		if _, ok := seen[s.Emotion]; ok {
			continue
		}
		seen[s.Emotion] = struct{}{}
		out = append(out, s.Emotion)
	}
	return out
}

// BuildSummary assembles the derived roll-up for one analysis. Pure
// function of its inputs: identical rows produce an identical summary.
func BuildSummary(duration float64, samples []EmotionSample, events []GestureEvent, mainTopics []string) Summary {
	themes := mainTopics
	if len(themes) > topThemeLimit {
		themes = themes[:topThemeLimit]
	}
	if themes == nil {
		themes = []string{}
	}
	return Summary{
		TotalDuration:  duration,
		EmotionalRange: EmotionalRange(samples),
		KeyMoments:     ExtractKeyMoments(samples, events),
		TopThemes:      themes,
	}
}

func distance(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
