package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/advisor"
	"github.com/aliskhannn/retro-booth/internal/ai"
	"github.com/aliskhannn/retro-booth/internal/api/handlers/meta"
	photohttp "github.com/aliskhannn/retro-booth/internal/api/handlers/photo"
	settingshttp "github.com/aliskhannn/retro-booth/internal/api/handlers/settings"
	"github.com/aliskhannn/retro-booth/internal/api/handlers/ws"
	"github.com/aliskhannn/retro-booth/internal/api/middleware"
	"github.com/aliskhannn/retro-booth/internal/api/router"
	"github.com/aliskhannn/retro-booth/internal/api/server"
	"github.com/aliskhannn/retro-booth/internal/capture"
	"github.com/aliskhannn/retro-booth/internal/config"
	"github.com/aliskhannn/retro-booth/internal/exporter"
	"github.com/aliskhannn/retro-booth/internal/infra/kafka/consumer"
	"github.com/aliskhannn/retro-booth/internal/infra/kafka/producer"
	photomsg "github.com/aliskhannn/retro-booth/internal/kafka/handlers/photo"
	"github.com/aliskhannn/retro-booth/internal/model"
	"github.com/aliskhannn/retro-booth/internal/processor"
	localqueue "github.com/aliskhannn/retro-booth/internal/queue/local"
	"github.com/aliskhannn/retro-booth/internal/repository/onboarding"
	photorepo "github.com/aliskhannn/retro-booth/internal/repository/photo"
	photosvc "github.com/aliskhannn/retro-booth/internal/service/photo"
	settingssvc "github.com/aliskhannn/retro-booth/internal/service/settings"
	"github.com/aliskhannn/retro-booth/internal/storage/file"
	"github.com/aliskhannn/retro-booth/internal/storage/local"
)

// enricher forwards queued tasks to the photo service, which is built after the queue it depends on.
type enricher struct {
	svc *photosvc.Service
}

func (e *enricher) Enrich(ctx context.Context, task model.EnrichTask) error {
	return e.svc.Enrich(ctx, task)
}

// taskQueue is the enrichment transport picked by queue.driver.
type taskQueue interface {
	Enqueue(ctx context.Context, task model.EnrichTask) error
	Consume(ctx context.Context, wg *sync.WaitGroup)
}

// kafkaQueue pairs the producer and consumer of the kafka driver.
type kafkaQueue struct {
	*producer.Producer
	consumer *consumer.Consumer
}

func (q kafkaQueue) Consume(ctx context.Context, wg *sync.WaitGroup) {
	q.consumer.Consume(ctx, wg)
}

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Secrets may live in a local .env file; a missing file is fine.
	_ = godotenv.Load()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "./config/config.yml"
	}
	cfg := config.MustLoad(cfgPath)

	// Retry strategy for Kafka and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	storage := mustStorage(ctx, cfg.Storage)
	flag, rdb := mustOnboarding(ctx, cfg.Redis)
	aiClient := ai.WithTimeout(newAI(ctx, cfg.AI), cfg.AI.Timeout)

	proc, err := processor.New()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load fonts")
	}

	// Store, settings and live updates.
	hub := ws.NewHub(func(r *http.Request) bool {
		return middleware.OriginAllowed(r.Header.Get("Origin"), cfg.Server.AllowedOrigins) || r.Header.Get("Origin") == ""
	})
	repo := photorepo.NewRepository(photorepo.WithNotifier(hub))
	settings := settingssvc.NewService(settingssvc.Defaults())

	camera := capture.NewLive(capture.LiveConfig{
		UserURL:        cfg.Camera.UserURL,
		EnvironmentURL: cfg.Camera.EnvironmentURL,
		Timeout:        cfg.Camera.Timeout,
		Attempts:       cfg.Camera.Attempts,
		Delay:          cfg.Camera.Delay,
	}, settings.CameraMode)

	// Enrichment transport.
	fwd := &enricher{}
	capturedHandler := photomsg.NewCapturedHandler(fwd)

	var queue taskQueue
	switch cfg.Queue.Driver {
	case "kafka":
		queue = kafkaQueue{
			Producer: producer.New(&cfg.Kafka, strategy),
			consumer: consumer.New(&cfg.Kafka, strategy, capturedHandler),
		}
	default:
		queue = localqueue.New(capturedHandler, cfg.Queue.Workers, cfg.Queue.Buffer)
	}
	zlog.Logger.Info().Str("driver", cfg.Queue.Driver).Msg("enrichment queue ready")

	service := photosvc.NewService(photosvc.Deps{
		Photos:        repo,
		Settings:      settings,
		Camera:        camera,
		Queue:         queue,
		Advisor:       advisor.New(aiClient, repo),
		AI:            aiClient,
		Renderer:      proc,
		Exporter:      exporter.New(proc, cfg.Export.TargetPixels),
		Files:         storage,
		ExportTimeout: cfg.Export.Timeout,
	}, cfg.Desk.PreviewMaxSide)
	fwd.svc = service

	// Start the enrichment workers in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go queue.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(router.Handlers{
		Photo:    photohttp.NewHandler(service, cfg.Server.MaxUploadBytes),
		Settings: settingshttp.NewHandler(settings),
		Meta:     meta.NewHandler(flag),
		Hub:      hub,
	}, cfg.Server.AllowedOrigins)
	s := server.New(cfg.Server, r)
	go func() {
		zlog.Logger.Info().Str("addr", s.Addr).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	hub.Close()
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Wait for the enrichment workers to drain.
	wg.Wait()

	if kq, ok := queue.(kafkaQueue); ok {
		if err := kq.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
}

// fileStore is the export artifact storage shared by both drivers.
type fileStore interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, subdir string) ([]model.StoredFile, error)
	Delete(ctx context.Context, path string) error
}

func mustStorage(ctx context.Context, cfg config.Storage) fileStore {
	if cfg.Driver == "minio" {
		storage, err := file.NewStorage(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.BucketName, cfg.UseSSL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
		zlog.Logger.Info().Str("bucket", cfg.BucketName).Msg("using minio storage")
		return storage
	}

	storage, err := local.NewStorage(cfg.LocalDir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open local storage")
	}
	zlog.Logger.Info().Str("dir", cfg.LocalDir).Msg("using local storage")
	return storage
}

type onboardingFlag interface {
	ShowOnce(ctx context.Context) (bool, error)
}

// mustOnboarding keeps the onboarding flag in redis when configured, in memory otherwise.
func mustOnboarding(ctx context.Context, cfg config.Redis) (onboardingFlag, *redis.Client) {
	if cfg.Addr == "" {
		return onboarding.NewMemoryRepository(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Str("addr", cfg.Addr).Msg("failed to connect to redis")
	}
	return onboarding.NewRedisRepository(rdb, cfg.KeyPrefix), rdb
}

// newAI picks the model backend. Missing credentials disable AI features instead of failing startup.
func newAI(ctx context.Context, cfg config.AI) ai.Client {
	var (
		client ai.Client
		err    error
	)

	switch cfg.Provider {
	case "gemini":
		client, err = ai.NewGemini(ctx, cfg.APIKey, cfg.VisionModel, cfg.ImageModel)
	case "ollama":
		client, err = ai.NewOllama(cfg.OllamaURL, cfg.VisionModel, cfg.Temperature)
	default:
		zlog.Logger.Info().Msg("ai features disabled")
		return ai.Disabled{}
	}

	if err != nil {
		zlog.Logger.Warn().Err(err).Str("provider", cfg.Provider).Msg("ai backend unavailable, ai features disabled")
		return ai.Disabled{}
	}

	zlog.Logger.Info().Str("provider", cfg.Provider).Str("model", cfg.VisionModel).Msg("ai backend ready")
	return client
}
