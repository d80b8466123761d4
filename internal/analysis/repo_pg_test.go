package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"talklens-backend/internal/llm"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := Analysis{
		ID:        "job-1",
		VideoID:   "vid-1",
		Status:    StatusPending,
		StartedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(a.ID, a.VideoID, "pending", 0, a.StartedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM analyses").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "video_id", "status", "progress_percent", "error_message", "started_at", "completed_at"}))

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSetTerminalGuardsTerminalRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	completedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE analyses").
		WithArgs("failed", "boom", completedAt, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetTerminal(context.Background(), "job-1", StatusFailed, "boom", completedAt); err != nil {
		t.Fatalf("SetTerminal: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSaveInsightMarshalsLists(t *testing.T) {
	repo, mock := newMockRepo(t)
	insight := llm.Insight{
		MainTopics:        []string{"climate"},
		PersuasionScore:   8,
		OverallTone:       "urgent",
		TranscriptSummary: "A call to action.",
	}

	mock.ExpectExec("INSERT INTO llm_insights").
		WithArgs(
			sqlmock.AnyArg(), // insight id
			"job-1",
			[]byte(`["climate"]`),
			[]byte(`[]`),
			[]byte(`[]`),
			8.0,
			"urgent",
			"A call to action.",
			false,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveInsight(context.Background(), "job-1", insight); err != nil {
		t.Fatalf("SaveInsight: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListEmotionsOrdered(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"timestamp_seconds", "emotion", "confidence"}).
		AddRow(0.0, "neutral", 0.9).
		AddRow(1.0, "passionate", 0.95)
	mock.ExpectQuery("SELECT (.+) FROM emotions").
		WithArgs("job-1").
		WillReturnRows(rows)

	got, err := repo.ListEmotions(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("ListEmotions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[1].Emotion != EmotionPassionate {
		t.Errorf("unexpected second sample %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
