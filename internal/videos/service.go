package videos

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"talklens-backend/internal/shared/storage/object"
	"talklens-backend/internal/shared/telemetry"
	"talklens-backend/internal/shared/util"
)

// Prober reports the duration of a local media file.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".webm": {},
	".mkv":  {},
}

// Service contains business logic for videos.
type Service struct {
	Store  object.ObjectStore
	Repo   VideosRepo
	Prober Prober
}

// Upload validates the stream as a readable video, saves it to object
// storage and records the Video row. The upload is spooled to a temp file
// first so ffprobe can inspect it before anything is persisted.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Video, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Video{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	ext := strings.ToLower(filepath.Ext(sanitized))
	if _, ok := allowedExtensions[ext]; !ok {
		return Video{}, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidInput, ext)
	}

	tmp, err := os.CreateTemp("", "talklens-upload-*"+ext)
	if err != nil {
		return Video{}, fmt.Errorf("spool upload: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, r); err != nil {
		return Video{}, fmt.Errorf("spool upload: %w", err)
	}

	duration, err := s.Prober.ProbeDuration(ctx, tmp.Name())
	if err != nil {
		return Video{}, fmt.Errorf("%w: not a readable video: %v", ErrInvalidInput, err)
	}
	if duration <= 0 {
		return Video{}, fmt.Errorf("%w: video has no duration", ErrInvalidInput)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return Video{}, fmt.Errorf("spool upload: %w", err)
	}

	videoID := uuid.NewString()
	storageKey, size, mimeType, err := s.Store.Save(ctx, videoID, sanitized, tmp)
	if err != nil {
		return Video{}, fmt.Errorf("store video: %w", err)
	}

	v := Video{
		ID:              videoID,
		OriginalName:    sanitized,
		StorageKey:      storageKey,
		SizeBytes:       size,
		DurationSeconds: duration,
		MimeType:        mimeType,
		Status:          StatusPending,
		UploadedAt:      time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, v); err != nil {
		return Video{}, err
	}

	telemetry.Info("video.uploaded", map[string]any{
		"video_id":   v.ID,
		"size_bytes": v.SizeBytes,
		"duration_s": v.DurationSeconds,
	})
	return v, nil
}

// Get returns one video by id.
func (s *Service) Get(ctx context.Context, id string) (Video, error) {
	if id == "" {
		return Video{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns videos newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Video, error) {
	return s.Repo.List(ctx, limit, offset)
}
