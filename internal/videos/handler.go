package videos

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"talklens-backend/internal/analysis"
	"talklens-backend/internal/shared/server/respond"
)

// Submitter starts an analysis job for an uploaded video.
type Submitter interface {
	Submit(ctx context.Context, videoID string) (jobID string, err error)
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	Analyses       Submitter
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, analyses Submitter, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 500 << 20
	}
	return &Handler{Svc: svc, Analyses: analyses, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches video routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/videos", h.upload)
	rg.GET("/videos", h.list)
	rg.GET("/videos/:id", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("video")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "video file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read video file", nil)
		return
	}
	defer file.Close()

	v, err := h.Svc.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store video", nil)
		return
	}

	jobID, err := h.Analyses.Submit(c.Request.Context(), v.ID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrCapabilityUnavailable):
			respond.ErrorWithHint(c, http.StatusServiceUnavailable, "capability_unavailable",
				"an analysis service is unreachable",
				"check that the vision and speech sidecars are running and reachable from the API", nil)
		case errors.Is(err, analysis.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":   jobID,
		"videoId": v.ID,
		"status":  "pending",
	})
}

func (h *Handler) get(c *gin.Context) {
	v, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "video not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch video", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(v))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	vids, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list videos", nil)
		return
	}

	resp := make([]VideoResponse, 0, len(vids))
	for _, v := range vids {
		resp = append(resp, toResponse(v))
	}
	respond.JSON(c, http.StatusOK, resp)
}
