// Package speech is the HTTP adapter for the transcription sidecar. The
// sidecar accepts a mono 16 kHz WAV upload and returns timed segments.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrUnavailable marks failures where the sidecar could not serve the
// request at all (connection refused, timeout, 5xx). Callers may retry.
var ErrUnavailable = errors.New("speech service unavailable")

// Segment is one timed span of transcribed speech.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type transcribeResponse struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Transcription of a long talk can take a while.
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Transcribe uploads the WAV file and returns the recognized segments in
// the order the sidecar produced them.
func (c *Client) Transcribe(ctx context.Context, wavPath string) ([]Segment, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	fd, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer fd.Close()
	if _, err := io.Copy(fw, fd); err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, resp.Status, msg)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("transcription %s: %s", resp.Status, msg)
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	return out.Segments, nil
}

// Ping checks the sidecar's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %s", ErrUnavailable, resp.Status)
	}
	return nil
}
