package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"talklens-backend/internal/analysis"
	"talklens-backend/internal/llm"
	openai "talklens-backend/internal/llm/openai"
	"talklens-backend/internal/media"
	"talklens-backend/internal/shared/config"
	"talklens-backend/internal/shared/server"
	"talklens-backend/internal/shared/storage/db"
	"talklens-backend/internal/shared/storage/object"
	localstore "talklens-backend/internal/shared/storage/object/local"
	s3store "talklens-backend/internal/shared/storage/object/s3"
	"talklens-backend/internal/speech"
	"talklens-backend/internal/videos"
	"talklens-backend/internal/vision"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Media  *media.Processor

	VideosRepo   videos.VideosRepo
	AnalysesRepo analysis.AnalysesRepo

	VideosService   *videos.Service
	AnalysisService *analysis.Service

	VideosHandler   *videos.Handler
	AnalysisHandler *analysis.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	proc, err := media.NewProcessor(cfg.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("media processor: %w", err)
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Media:  proc,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		VideoHandler:    app.VideosHandler,
		AnalysisHandler: app.AnalysisHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			sqlDB.Close()
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) error {
	var videosRepo videos.VideosRepo
	var analysesRepo analysis.AnalysesRepo
	if app.DB != nil {
		videosRepo = &videos.PGRepo{DB: app.DB}
		analysesRepo = &analysis.PGRepo{DB: app.DB}
	} else {
		videosRepo = videos.NewMemoryRepo()
		analysesRepo = analysis.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel, app.Config.LLMTimeout)
		if err != nil {
			return err
		}
		llmClient = openaiClient
	}

	videoSvc := &videos.Service{
		Store:  app.Store,
		Repo:   videosRepo,
		Prober: app.Media,
	}

	analysisSvc := analysis.NewService(
		analysesRepo,
		videosSource{repo: videosRepo},
		app.Store,
		app.Media,
		vision.NewClient(app.Config.VisionServiceURL),
		speech.NewClient(app.Config.SpeechServiceURL),
		llmClient,
		app.Config.FrameSampleSeconds,
	)

	app.VideosRepo = videosRepo
	app.AnalysesRepo = analysesRepo
	app.VideosService = videoSvc
	app.AnalysisService = analysisSvc
	app.VideosHandler = videos.NewHandler(videoSvc, analysisSvc, app.Config.MaxUploadMB<<20)
	app.AnalysisHandler = analysis.NewHandler(analysisSvc)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// videosSource adapts the videos repository to the read and status update
// surface the analysis pipeline needs.
type videosSource struct {
	repo videos.VideosRepo
}

func (v videosSource) GetVideo(ctx context.Context, id string) (analysis.VideoInfo, error) {
	vid, err := v.repo.GetByID(ctx, id)
	if err != nil {
		return analysis.VideoInfo{}, err
	}
	return analysis.VideoInfo{
		ID:              vid.ID,
		OriginalName:    vid.OriginalName,
		StorageKey:      vid.StorageKey,
		DurationSeconds: vid.DurationSeconds,
	}, nil
}

func (v videosSource) SetVideoStatus(ctx context.Context, id string, status analysis.Status, processedAt *time.Time) error {
	return v.repo.UpdateStatus(ctx, id, videos.Status(status), processedAt)
}
