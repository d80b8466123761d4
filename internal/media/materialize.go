package media

import (
	"context"
	"fmt"
	"io"
	"os"

	"talklens-backend/internal/shared/storage/object"
)

// Materialize copies a stored video onto the local filesystem so that
// ffmpeg can seek in it. Returns the temp path; the caller removes it.
func Materialize(ctx context.Context, store object.ObjectStore, storageKey string) (string, error) {
	src, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("open stored video: %w", err)
	}
	defer src.Close()

	out, err := os.CreateTemp("", "talklens-video-*")
	if err != nil {
		return "", fmt.Errorf("create video temp file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("materialize stored video: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("materialize stored video: %w", err)
	}
	return out.Name(), nil
}
