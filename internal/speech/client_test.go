package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempWav(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFFxxxxWAVE"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"segments":[{"start":0,"end":4.2,"text":"Good morning.","confidence":0.97}],"language":"en"}`))
	}))
	defer srv.Close()

	segs, err := NewClient(srv.URL).Transcribe(context.Background(), writeTempWav(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != "Good morning." || segs[0].End != 4.2 {
		t.Errorf("unexpected segment: %+v", segs[0])
	}
}

func TestTranscribeUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Transcribe(context.Background(), writeTempWav(t))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	_, err := NewClient("http://localhost:1").Transcribe(context.Background(), "/nonexistent.wav")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatalf("local file error must not classify as unavailable: %v", err)
	}
}
