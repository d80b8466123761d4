package analysis

import "fmt"

// Emotion is one of the closed set of facial-emotion labels the visual
// capability may emit. Anything else is rejected at the stage boundary.
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionHappy      Emotion = "happy"
	EmotionSerious    Emotion = "serious"
	EmotionPassionate Emotion = "passionate"
	EmotionConfident  Emotion = "confident"
	EmotionHopeful    Emotion = "hopeful"
)

// ParseEmotion validates a raw capability label.
func ParseEmotion(raw string) (Emotion, error) {
	switch e := Emotion(raw); e {
	case EmotionNeutral, EmotionHappy, EmotionSerious, EmotionPassionate, EmotionConfident, EmotionHopeful:
		return e, nil
	}
	return "", fmt.Errorf("%w: emotion %q", ErrUnknownLabel, raw)
}

// GestureType is one of the closed set of gesture labels.
type GestureType string

const (
	GestureHandRaise   GestureType = "hand_raise"
	GesturePointing    GestureType = "pointing"
	GestureOpenArms    GestureType = "open_arms"
	GestureHandGesture GestureType = "hand_gesture"
)

// ParseGesture validates a raw capability label.
func ParseGesture(raw string) (GestureType, error) {
	switch g := GestureType(raw); g {
	case GestureHandRaise, GesturePointing, GestureOpenArms, GestureHandGesture:
		return g, nil
	}
	return "", fmt.Errorf("%w: gesture %q", ErrUnknownLabel, raw)
}

// gestureDescriptions carries the display strings shown in timelines and
// key moments.
var gestureDescriptions = map[GestureType]string{
	GestureHandRaise:   "Raised hands for emphasis",
	GesturePointing:    "Pointing gesture to audience",
	GestureOpenArms:    "Open arms welcoming gesture",
	GestureHandGesture: "Explanatory hand movement",
}

// Describe returns the display description for a gesture.
func (g GestureType) Describe() string {
	if d, ok := gestureDescriptions[g]; ok {
		return d
	}
	return string(g)
}

// MomentKind tags how a key moment was derived.
type MomentKind string

const (
	MomentEmotion  MomentKind = "emotion"
	MomentGesture  MomentKind = "gesture"
	MomentCombined MomentKind = "combined"
)
