package videos

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of VideosRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Video
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Video)}
}

// Create stores a new video record.
func (r *MemoryRepo) Create(ctx context.Context, v Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[v.ID] = v
	return nil
}

// GetByID returns a video by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	return v, nil
}

// List returns videos newest-first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]Video, 0, len(r.data))
	for _, v := range r.data {
		all = append(all, v)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].UploadedAt.After(all[j].UploadedAt)
	})

	if offset >= len(all) {
		return []Video{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// UpdateStatus transitions a video's status.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status Status, processedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	v.ProcessedAt = processedAt
	r.data[id] = v
	return nil
}

var _ VideosRepo = (*MemoryRepo)(nil)
