// Package media wraps the ffmpeg and ffprobe binaries for the video
// operations the analysis pipeline needs: probing duration, extracting a
// mono 16 kHz WAV track, and sampling still frames as JPEG bytes.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"talklens-backend/internal/shared/telemetry"
)

// Processor shells out to ffmpeg/ffprobe. Temporary artifacts live in a
// dedicated directory under the OS temp dir and are removed per call.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

// NewProcessor resolves the ffmpeg binary (explicit path or PATH lookup)
// and prepares a scratch directory for intermediate files.
func NewProcessor(ffmpegPath string) (*Processor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	// ffprobe ships alongside ffmpeg; fall back to ffmpeg stderr parsing
	// when it is missing.
	ffprobePath, err := exec.LookPath(probeBinaryFor(resolved))
	if err != nil {
		ffprobePath = ""
	}

	tempDir := filepath.Join(os.TempDir(), "talklens-media")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media temp dir: %w", err)
	}

	telemetry.Info("media.processor.ready", map[string]any{
		"ffmpeg":  resolved,
		"ffprobe": ffprobePath,
	})

	return &Processor{ffmpegPath: resolved, ffprobePath: ffprobePath, tempDir: tempDir}, nil
}

func probeBinaryFor(ffmpegPath string) string {
	dir := filepath.Dir(ffmpegPath)
	candidate := filepath.Join(dir, "ffprobe")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return "ffprobe"
}

// ProbeDuration returns the media duration in seconds.
func (p *Processor) ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return 0, fmt.Errorf("video file not accessible: %w", err)
	}

	if p.ffprobePath != "" {
		cmd := exec.CommandContext(ctx, p.ffprobePath,
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			videoPath)
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err == nil {
			if d, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64); err == nil && d > 0 {
				return d, nil
			}
		}
	}

	// ffmpeg prints "Duration: HH:MM:SS.cc," on stderr even when the run
	// itself fails, so ignore the exit status here.
	cmd := exec.CommandContext(ctx, p.ffmpegPath, "-i", videoPath, "-f", "null", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_ = cmd.Run()

	d, err := parseDurationOutput(stderr.String())
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", filepath.Base(videoPath), err)
	}
	return d, nil
}

func parseDurationOutput(output string) (float64, error) {
	const prefix = "Duration: "
	start := strings.Index(output, prefix)
	if start == -1 {
		return 0, fmt.Errorf("duration not found in ffmpeg output")
	}
	start += len(prefix)
	end := strings.Index(output[start:], ",")
	if end == -1 {
		return 0, fmt.Errorf("unterminated duration field")
	}

	parts := strings.Split(output[start:start+end], ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed duration %q", output[start:start+end])
	}
	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return hours*3600 + minutes*60 + seconds, nil
}

// ExtractAudio writes the audio track as 16 kHz mono PCM WAV and returns
// the path. The caller owns the file and removes it when done.
func (p *Processor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	out, err := os.CreateTemp(p.tempDir, "audio-*.wav")
	if err != nil {
		return "", fmt.Errorf("create audio temp file: %w", err)
	}
	outPath := out.Name()
	out.Close()

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("extract audio: %w: %s", err, tailOf(stderr.String()))
	}
	return outPath, nil
}

// ExtractFrame grabs a single frame at the given timestamp and returns it
// as JPEG bytes.
func (p *Processor) ExtractFrame(ctx context.Context, videoPath string, atSeconds float64) ([]byte, error) {
	out, err := os.CreateTemp(p.tempDir, "frame-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create frame temp file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-ss", fmt.Sprintf("%.2f", atSeconds),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		"-f", "mjpeg",
		"-y",
		outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extract frame at %.2fs: %w: %s", atSeconds, err, tailOf(stderr.String()))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("extract frame at %.2fs: empty output", atSeconds)
	}
	return data, nil
}

// SampleTimestamps returns the instants at which frames should be taken
// for a video of the given duration, one per interval starting at zero.
// The last instant is pulled slightly inside the stream so a seek at the
// exact end still lands on a frame.
func SampleTimestamps(duration, interval float64) []float64 {
	if duration <= 0 || interval <= 0 {
		return nil
	}
	var ts []float64
	for t := 0.0; t < duration; t += interval {
		ts = append(ts, t)
	}
	if len(ts) == 0 {
		ts = append(ts, 0)
	}
	return ts
}

// Cleanup removes the scratch directory.
func (p *Processor) Cleanup() error {
	return os.RemoveAll(p.tempDir)
}

func tailOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 300 {
		s = s[len(s)-300:]
	}
	return s
}
