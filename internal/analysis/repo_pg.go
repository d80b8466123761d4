package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"talklens-backend/internal/llm"
)

// PGRepo implements AnalysesRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	const query = `
INSERT INTO analyses (id, video_id, status, progress_percent, started_at)
VALUES ($1, $2, $3, $4, $5)`
	status := a.Status
	if status == "" {
		status = StatusPending
	}
	_, err := r.DB.ExecContext(ctx, query, a.ID, a.VideoID, string(status), a.ProgressPercent, a.StartedAt)
	return err
}

const analysisColumns = `id, video_id, status, progress_percent, error_message, started_at, completed_at`

// Get fetches an analysis by id.
func (r *PGRepo) Get(ctx context.Context, id string) (Analysis, error) {
	const query = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// GetByVideo fetches the analysis owned by a video.
func (r *PGRepo) GetByVideo(ctx context.Context, videoID string) (Analysis, error) {
	const query = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE video_id = $1
ORDER BY started_at DESC
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, videoID))
}

func (r *PGRepo) scanOne(row *sql.Row) (Analysis, error) {
	var a Analysis
	var status string
	var errMsg sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&a.ID, &a.VideoID, &status, &a.ProgressPercent, &errMsg, &a.StartedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	a.Status = Status(status)
	if errMsg.Valid {
		a.ErrorMessage = errMsg.String
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

// UpdateProgress sets the progress percent unless the job is terminal.
func (r *PGRepo) UpdateProgress(ctx context.Context, id string, percent int) error {
	const query = `
UPDATE analyses
SET progress_percent = $1
WHERE id = $2 AND status NOT IN ('completed', 'failed')`
	_, err := r.DB.ExecContext(ctx, query, percent, id)
	return err
}

// MarkProcessing transitions pending to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, id string) error {
	const query = `
UPDATE analyses
SET status = 'processing'
WHERE id = $1 AND status = 'pending'`
	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}

// SetTerminal records the completed/failed transition; terminal rows are
// never updated again.
func (r *PGRepo) SetTerminal(ctx context.Context, id string, status Status, errorMessage string, completedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $1,
    error_message = NULLIF($2, ''),
    completed_at = $3,
    progress_percent = CASE WHEN $1 = 'completed' THEN 100 ELSE progress_percent END
WHERE id = $4 AND status NOT IN ('completed', 'failed')`
	_, err := r.DB.ExecContext(ctx, query, string(status), errorMessage, completedAt, id)
	return err
}

// AppendEmotions inserts emotion samples in order.
func (r *PGRepo) AppendEmotions(ctx context.Context, id string, samples []EmotionSample) error {
	const query = `
INSERT INTO emotions (analysis_id, timestamp_seconds, emotion, confidence)
VALUES ($1, $2, $3, $4)`
	for _, s := range samples {
		if _, err := r.DB.ExecContext(ctx, query, id, s.Timestamp, string(s.Emotion), s.Confidence); err != nil {
			return fmt.Errorf("append emotion: %w", err)
		}
	}
	return nil
}

// AppendGestures inserts gesture events in order.
func (r *PGRepo) AppendGestures(ctx context.Context, id string, events []GestureEvent) error {
	const query = `
INSERT INTO gestures (analysis_id, timestamp_seconds, gesture_type, description, confidence)
VALUES ($1, $2, $3, $4, $5)`
	for _, g := range events {
		if _, err := r.DB.ExecContext(ctx, query, id, g.Timestamp, string(g.Type), g.Description, g.Confidence); err != nil {
			return fmt.Errorf("append gesture: %w", err)
		}
	}
	return nil
}

// AppendTranscript inserts transcript segments in index order.
func (r *PGRepo) AppendTranscript(ctx context.Context, id string, segments []TranscriptSegment) error {
	const query = `
INSERT INTO transcripts (analysis_id, segment_index, start_time, end_time, text, confidence)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, s := range segments {
		if _, err := r.DB.ExecContext(ctx, query, id, s.Index, s.Start, s.End, s.Text, s.Confidence); err != nil {
			return fmt.Errorf("append transcript segment: %w", err)
		}
	}
	return nil
}

// SaveInsight stores the single insight; a second write is ignored.
func (r *PGRepo) SaveInsight(ctx context.Context, id string, insight llm.Insight) error {
	const query = `
INSERT INTO llm_insights (
    id, analysis_id, main_topics, rhetorical_techniques, persuasive_elements,
    persuasion_score, overall_tone, transcript_summary, fallback
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (analysis_id) DO NOTHING`

	topics, err := json.Marshal(emptyIfNil(insight.MainTopics))
	if err != nil {
		return err
	}
	techniques, err := json.Marshal(emptyIfNil(insight.RhetoricalTechniques))
	if err != nil {
		return err
	}
	elements, err := json.Marshal(emptyIfNil(insight.PersuasiveElements))
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		uuid.NewString(), id, topics, techniques, elements,
		insight.PersuasionScore, insight.OverallTone, insight.TranscriptSummary, insight.Fallback)
	return err
}

// SaveKeyMoments stores the derived key moments.
func (r *PGRepo) SaveKeyMoments(ctx context.Context, id string, moments []KeyMoment) error {
	const query = `
INSERT INTO key_moments (analysis_id, timestamp_seconds, description, moment_type)
VALUES ($1, $2, $3, $4)`
	for _, m := range moments {
		if _, err := r.DB.ExecContext(ctx, query, id, m.Timestamp, m.Description, string(m.Kind)); err != nil {
			return fmt.Errorf("save key moment: %w", err)
		}
	}
	return nil
}

// ListEmotions returns the emotion stream ordered by timestamp.
func (r *PGRepo) ListEmotions(ctx context.Context, id string) ([]EmotionSample, error) {
	const query = `
SELECT timestamp_seconds, emotion, confidence
FROM emotions
WHERE analysis_id = $1
ORDER BY timestamp_seconds ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmotionSample
	for rows.Next() {
		var s EmotionSample
		var emotion string
		if err := rows.Scan(&s.Timestamp, &emotion, &s.Confidence); err != nil {
			return nil, err
		}
		s.Emotion = Emotion(emotion)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListGestures returns the gesture stream ordered by timestamp.
func (r *PGRepo) ListGestures(ctx context.Context, id string) ([]GestureEvent, error) {
	const query = `
SELECT timestamp_seconds, gesture_type, description, confidence
FROM gestures
WHERE analysis_id = $1
ORDER BY timestamp_seconds ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GestureEvent
	for rows.Next() {
		var g GestureEvent
		var gesture string
		if err := rows.Scan(&g.Timestamp, &gesture, &g.Description, &g.Confidence); err != nil {
			return nil, err
		}
		g.Type = GestureType(gesture)
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListTranscript returns the transcript ordered by segment index.
func (r *PGRepo) ListTranscript(ctx context.Context, id string) ([]TranscriptSegment, error) {
	const query = `
SELECT segment_index, start_time, end_time, text, confidence
FROM transcripts
WHERE analysis_id = $1
ORDER BY segment_index ASC`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TranscriptSegment
	for rows.Next() {
		var s TranscriptSegment
		var confidence sql.NullFloat64
		if err := rows.Scan(&s.Index, &s.Start, &s.End, &s.Text, &confidence); err != nil {
			return nil, err
		}
		if confidence.Valid {
			s.Confidence = confidence.Float64
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetInsight returns the stored insight.
func (r *PGRepo) GetInsight(ctx context.Context, id string) (llm.Insight, error) {
	const query = `
SELECT main_topics, rhetorical_techniques, persuasive_elements, persuasion_score, overall_tone, transcript_summary, fallback
FROM llm_insights
WHERE analysis_id = $1
LIMIT 1`
	var topics, techniques, elements []byte
	var insight llm.Insight
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&topics, &techniques, &elements,
		&insight.PersuasionScore, &insight.OverallTone, &insight.TranscriptSummary, &insight.Fallback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return llm.Insight{}, ErrNotFound
		}
		return llm.Insight{}, err
	}
	if err := json.Unmarshal(topics, &insight.MainTopics); err != nil {
		return llm.Insight{}, fmt.Errorf("decode main_topics: %w", err)
	}
	if err := json.Unmarshal(techniques, &insight.RhetoricalTechniques); err != nil {
		return llm.Insight{}, fmt.Errorf("decode rhetorical_techniques: %w", err)
	}
	if err := json.Unmarshal(elements, &insight.PersuasiveElements); err != nil {
		return llm.Insight{}, fmt.Errorf("decode persuasive_elements: %w", err)
	}
	return insight, nil
}

// ListKeyMoments returns key moments ordered by timestamp.
func (r *PGRepo) ListKeyMoments(ctx context.Context, id string) ([]KeyMoment, error) {
	const query = `
SELECT timestamp_seconds, description, moment_type
FROM key_moments
WHERE analysis_id = $1
ORDER BY timestamp_seconds ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KeyMoment
	for rows.Next() {
		var m KeyMoment
		var kind string
		if err := rows.Scan(&m.Timestamp, &m.Description, &kind); err != nil {
			return nil, err
		}
		m.Kind = MomentKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

var _ AnalysesRepo = (*PGRepo)(nil)
