package videos

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements VideosRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new video.
func (r *PGRepo) Create(ctx context.Context, v Video) error {
	const query = `
INSERT INTO videos (
    id,
    original_name,
    stored_path,
    size_bytes,
    mime_type,
    duration_seconds,
    status,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	status := v.Status
	if status == "" {
		status = StatusPending
	}

	var duration sql.NullFloat64
	if v.DurationSeconds > 0 {
		duration = sql.NullFloat64{Float64: v.DurationSeconds, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		v.ID,
		v.OriginalName,
		v.StorageKey,
		v.SizeBytes,
		v.MimeType,
		duration,
		string(status),
		v.UploadedAt,
	)
	return err
}

const selectColumns = `id, original_name, stored_path, size_bytes, mime_type, duration_seconds, status, uploaded_at, processed_at`

// GetByID fetches a video by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Video, error) {
	const query = `
SELECT ` + selectColumns + `
FROM videos
WHERE id = $1
LIMIT 1`
	v, err := scanVideo(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		return Video{}, err
	}
	return v, nil
}

// List returns videos newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Video, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + selectColumns + `
FROM videos
ORDER BY uploaded_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a video's status and records the processing end.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status Status, processedAt *time.Time) error {
	const query = `
UPDATE videos
SET status = $1, processed_at = $2
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, string(status), processedAt, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (Video, error) {
	var v Video
	var duration sql.NullFloat64
	var status string
	var processedAt sql.NullTime
	if err := row.Scan(
		&v.ID,
		&v.OriginalName,
		&v.StorageKey,
		&v.SizeBytes,
		&v.MimeType,
		&duration,
		&status,
		&v.UploadedAt,
		&processedAt,
	); err != nil {
		return Video{}, err
	}
	if duration.Valid {
		v.DurationSeconds = duration.Float64
	}
	v.Status = Status(status)
	if processedAt.Valid {
		v.ProcessedAt = &processedAt.Time
	}
	return v, nil
}

var _ VideosRepo = (*PGRepo)(nil)
