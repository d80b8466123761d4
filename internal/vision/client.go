// Package vision is the HTTP adapter for the visual inference sidecar.
// The sidecar accepts a single JPEG frame and returns the dominant facial
// emotion plus any gestures visible in the frame.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable marks failures where the sidecar could not serve the
// request at all (connection refused, timeout, 5xx). Callers may retry.
var ErrUnavailable = errors.New("vision service unavailable")

// Observation is the sidecar's verdict for one frame. Labels are raw
// strings; the caller validates them against its closed label set.
type Observation struct {
	Emotion    string   `json:"emotion"`
	Confidence float64  `json:"confidence"`
	Gestures   []string `json:"gestures"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// AnalyzeFrame posts one JPEG frame to the sidecar.
func (c *Client) AnalyzeFrame(ctx context.Context, frame []byte) (Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(frame))
	if err != nil {
		return Observation{}, fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Observation{}, fmt.Errorf("%w: %s: %s", ErrUnavailable, resp.Status, body)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Observation{}, fmt.Errorf("vision %s: %s", resp.Status, body)
	}

	var out Observation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Observation{}, fmt.Errorf("decode vision response: %w", err)
	}
	return out, nil
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
