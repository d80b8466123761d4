package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestStatusNotFound(t *testing.T) {
	h := newHarness(t)
	router := newTestRouter(h.svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/unknown-job", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestStatusPollLimiter(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	router := newTestRouter(h.svc)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+jobID, nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first poll: expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+jobID, nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("hammered poll: expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("429 must carry Retry-After")
	}
}

func TestResultConflictBeforeCompletion(t *testing.T) {
	h := newHarness(t)
	pending := Analysis{ID: "job-pending", VideoID: "vid-1", Status: StatusPending, StartedAt: time.Now()}
	if err := h.repo.Create(context.Background(), pending); err != nil {
		t.Fatalf("create: %v", err)
	}
	router := newTestRouter(h.svc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/job-pending/result", nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestResultCompleted(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.waitTerminal(t, jobID)
	router := newTestRouter(h.svc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+jobID+"/result", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Status string `json:"status"`
		Data   *struct {
			Emotions []EmotionSample `json:"emotions"`
			Summary  Summary         `json:"summary"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "completed" {
		t.Errorf("status = %q, want completed", body.Status)
	}
	if body.Data == nil || len(body.Data.Emotions) == 0 {
		t.Fatal("completed result must carry data")
	}
}

func TestProgressStreamDeliversSentinel(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.svc.Submit(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.waitTerminal(t, jobID)
	router := newTestRouter(h.svc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+jobID+"/progress", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}

	body := resp.Body.String()
	if !strings.Contains(body, `data: {"message":"DONE"}`) {
		t.Fatalf("stream must end with the DONE sentinel, got:\n%s", body)
	}
	if !strings.Contains(body, "Processing video") {
		t.Errorf("stream must replay history, got:\n%s", body)
	}
	idxDone := strings.Index(body, `"DONE"`)
	idxFirst := strings.Index(body, "Processing video")
	if idxFirst > idxDone {
		t.Error("history must precede the sentinel")
	}
}
