package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"talklens-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the orchestrator.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses/:id", h.status)
	rg.GET("/analyses/:id/result", h.result)
	rg.GET("/analyses/:id/progress", h.progress)
}

type statusResponse struct {
	JobID    string `json:"jobId"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) status(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)

	if !h.limiter.Allow(c.ClientIP(), jobID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "poll at most once per second per job", nil)
		return
	}

	a, err := h.Svc.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		return
	}

	respond.JSON(c, http.StatusOK, statusResponse{
		JobID:    a.ID,
		Status:   string(a.Status),
		Progress: a.ProgressPercent,
		Error:    a.ErrorMessage,
	})
}

type resultResponse struct {
	JobID    string  `json:"jobId"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	Data     *Result `json:"data,omitempty"`
}

func (h *Handler) result(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)

	result, err := h.Svc.Result(c.Request.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		case errors.Is(err, ErrNotReady):
			a, statusErr := h.Svc.Status(c.Request.Context(), jobID)
			if statusErr != nil {
				respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
				return
			}
			respond.Error(c, http.StatusConflict, "not_ready", "analysis has not completed yet", gin.H{
				"status":   string(a.Status),
				"progress": a.ProgressPercent,
			})
		case errors.Is(err, ErrAnalysisFailed):
			respond.Error(c, http.StatusInternalServerError, "analysis_failed",
				strings.TrimPrefix(err.Error(), ErrAnalysisFailed.Error()+": "), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch result", nil)
		}
		return
	}

	a, err := h.Svc.Status(c.Request.Context(), jobID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		return
	}
	respond.JSON(c, http.StatusOK, resultResponse{
		JobID:    a.ID,
		Status:   string(a.Status),
		Progress: a.ProgressPercent,
		Data:     &result,
	})
}

// progress streams the job's progress log as server-sent events, one
// {"message": ...} per event, ending with the DONE sentinel.
func (h *Handler) progress(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)

	log, err := h.Svc.Progress(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open progress stream", nil)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "streaming unsupported", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Keep idle streams alive through proxies while the job works.
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	ch := log.Subscribe(c.Request.Context())
	for {
		select {
		case msg, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(gin.H{"message": msg})
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
