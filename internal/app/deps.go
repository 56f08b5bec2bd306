package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cliplab/backend/internal/ai"
	"github.com/cliplab/backend/internal/auth"
	"github.com/cliplab/backend/internal/billing"
	"github.com/cliplab/backend/internal/config"
	"github.com/cliplab/backend/internal/db"
	"github.com/cliplab/backend/internal/extract"
	"github.com/cliplab/backend/internal/handlers"
	"github.com/cliplab/backend/internal/jobs"
	"github.com/cliplab/backend/internal/media"
	"github.com/cliplab/backend/internal/middleware"
	"github.com/cliplab/backend/internal/repositories"
	"github.com/cliplab/backend/internal/storage"
	"github.com/cliplab/backend/internal/transcribe"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers and returns the job runner alongside so serve can drain it on
// shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *jobs.Runner, error) {
	userRepo := repositories.NewPostgresUserRepository(pool)
	jobRepo := repositories.NewPostgresJobRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)
	sessions := auth.NewManager(15*time.Minute, 24*time.Hour, sessionStore)

	ytDlp := media.NewYTDLPProvider(cfg.YTDLPPath, cfg.YTDLPTimeout)
	metadata := media.NewCachingProvider(ytDlp, cfg.MetadataCacheTTL)
	captions := media.NewCaptionFetcher(cfg.CaptionLanguage)

	audio := transcribe.NewAudio(cfg.FFmpegPath, cfg.FFprobePath, nil)
	loader := transcribe.NewModelLoader(func() (transcribe.Model, error) {
		return transcribe.NewWhisperModel(cfg.OpenAIAPIKey)
	})
	transcriber := transcribe.NewTranscriber(audio, loader, cfg.MaxAudioDuration, cfg.ChunkDuration, cfg.CaptionLanguage, cfg.TempDir)

	extractor := extract.NewExtractor(ytDlp, captions, transcriber, cfg.TempDir)

	chat, err := ai.NewOpenAIChat(cfg.OpenAIAPIKey)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	engine := ai.NewEngine(chat)

	pipelines := &jobs.Pipelines{
		Extractor: extractor,
		Engine:    engine,
		Channel:   ytDlp,
		Comments:  ytDlp,
		Logger:    logger,
	}

	var artifacts jobs.ArtifactStore
	if cfg.ObjectStore.Bucket != "" {
		s3Store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		artifacts = s3Store
	}

	runner := jobs.NewRunner(jobRepo, artifacts, pipelines.Handlers(), jobs.RunnerConfig{
		QueueSize:  cfg.JobQueueSize,
		Workers:    cfg.JobWorkers,
		JobTimeout: cfg.JobTimeout,
	}, logger)

	deps := handlers.Dependencies{
		Users:         userRepo,
		Sessions:      sessions,
		Jobs:          jobRepo,
		Queue:         runner,
		Billing:       billing.NewService(userRepo, jobRepo, logger),
		Metadata:      metadata,
		Limiter:       middleware.NewIPRateLimiter(30, time.Minute, 10, 10*time.Minute),
		SignupCredits: cfg.SignupCredits,
	}

	return deps, runner, nil
}
