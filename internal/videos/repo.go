package videos

import (
	"context"
	"time"
)

// VideosRepo defines persistence operations for videos.
type VideosRepo interface {
	Create(ctx context.Context, v Video) error
	GetByID(ctx context.Context, id string) (Video, error)
	List(ctx context.Context, limit, offset int) ([]Video, error)
	UpdateStatus(ctx context.Context, id string, status Status, processedAt *time.Time) error
}
