package analysis

import (
	"context"
	"fmt"
	"os"

	"talklens-backend/internal/speech"
)

// audioOutput is the audio stage's typed result: the completed
// transcript the insight stage depends on.
type audioOutput struct {
	Segments []TranscriptSegment
}

// audioStage extracts the audio track once and runs the speech
// capability on the whole of it.
type audioStage struct {
	media MediaProcessor
	stt   Transcriber
}

func (s *audioStage) run(ctx context.Context, jobID, videoPath string, progress *ProgressLog) (audioOutput, error) {
	progress.Append("🎤 Extracting and transcribing audio...")

	wavPath, err := s.media.ExtractAudio(ctx, videoPath)
	if err != nil {
		return audioOutput{}, fmt.Errorf("audio stage: %w", err)
	}
	defer os.Remove(wavPath)
	progress.Append("✅ Audio extracted successfully")

	var raw []speech.Segment
	err = callWithRetry(ctx, jobID, func() error {
		var callErr error
		raw, callErr = s.stt.Transcribe(ctx, wavPath)
		return callErr
	})
	if err != nil {
		return audioOutput{}, fmt.Errorf("audio stage: %w", err)
	}

	segments, err := normalizeSegments(raw)
	if err != nil {
		return audioOutput{}, fmt.Errorf("audio stage: %w", err)
	}

	progress.Append(fmt.Sprintf("✅ Transcribed %d segments", len(segments)))
	return audioOutput{Segments: segments}, nil
}

// normalizeSegments turns raw capability output into ordered,
// non-overlapping transcript segments. An overlapping start is clamped
// to the prior segment's end (lossy); a segment whose span vanishes
// after clamping is skipped. A start earlier than the prior segment's
// start breaks within-stream monotonicity and is fatal.
func normalizeSegments(raw []speech.Segment) ([]TranscriptSegment, error) {
	out := make([]TranscriptSegment, 0, len(raw))
	prevStart := -1.0
	prevEnd := 0.0
	for i, seg := range raw {
		if seg.Start < prevStart {
			return nil, fmt.Errorf("%w: segment %d starts at %.2f before prior start %.2f",
				ErrInvariantViolation, i, seg.Start, prevStart)
		}
		prevStart = seg.Start

		start := seg.Start
		if start < prevEnd {
			start = prevEnd
		}
		if seg.End <= start {
			continue
		}
		prevEnd = seg.End

		out = append(out, TranscriptSegment{
			Index:      len(out),
			Start:      start,
			End:        seg.End,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		})
	}
	return out, nil
}
