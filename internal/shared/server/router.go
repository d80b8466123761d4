package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"talklens-backend/internal/analysis"
	"talklens-backend/internal/shared/config"
	"talklens-backend/internal/shared/metrics"
	"talklens-backend/internal/shared/server/middleware"
	"talklens-backend/internal/shared/server/respond"
	"talklens-backend/internal/videos"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	VideoHandler    *videos.Handler
	AnalysisHandler *analysis.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"UPLOAD":  {Rate: 0.5, Burst: 3},
				"DEFAULT": {Rate: 20, Burst: 40},
			},
			DefaultGroup: "DEFAULT",
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/videos" {
					return "UPLOAD"
				}
				return "DEFAULT"
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	if deps.VideoHandler != nil {
		deps.VideoHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
