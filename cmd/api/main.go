package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/database"
	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/handler"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/router"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/sink"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
	cloud "github.com/noah-isme/gema-eval-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	resultSink, err := buildSink(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure results sink")
	}

	judge, err := ai.NewJudge(ai.Settings{
		Provider:         cfg.JudgeProvider,
		Model:            cfg.JudgeModel,
		PassThreshold:    cfg.JudgePassThreshold,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure judge")
	}
	if _, ok := judge.(*ai.FallbackJudge); ok {
		cfg.JudgeProvider = ai.ProviderFallback
	}

	jobRepo := repository.NewMemoryJobRepository()
	if redisClient != nil {
		jobRepo = repository.NewRedisJobRepository(redisClient, database.JobKeyPrefix, cfg.JobStateTTL, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	jobService := service.NewEvaluationJobService(service.EvaluationJobConfig{
		Workers:        cfg.JobWorkers,
		QueueSize:      cfg.JobQueueSize,
		RoutingLogDir:  cfg.RoutingLogDir,
		ResponseLogDir: cfg.ResponseLogDir,
		Judge: evaluation.JudgeOptions{
			Concurrency: cfg.JudgeConcurrency,
			Timeout:     cfg.JudgeTimeout,
		},
		ClaimTTL: cfg.JobStateTTL,
	}, service.EvaluationJobDependencies{
		Repo:      jobRepo,
		Sink:      resultSink,
		Judge:     judge,
		Notifier:  service.NewHTTPWebhookNotifier(cfg.WebhookTimeout, logger),
		Events:    service.NewJobEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger),
		Redis:     redisClient,
		Validator: validate,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: handler.NewEvaluationHandler(jobService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("judge", cfg.JudgeProvider).Str("sink", cfg.ResultsSink).Msg("evaluation api started")

	waitForShutdown(ctx, app, jobService, logger)
}

func buildSink(cfg config.Config, logger zerolog.Logger) (sink.Sink, error) {
	if cfg.ResultsSink == "database" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&models.EvaluationResult{}); err != nil {
			return nil, err
		}
		return sink.NewDatabaseSink(repository.NewEvaluationResultRepository(db), logger), nil
	}

	csvSink, err := sink.NewCSVSink(sink.CSVConfig{Dir: cfg.ResultsDir, Mode: cfg.ResultsMode}, logger)
	if err != nil {
		return nil, err
	}

	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if !cloudCfg.Enabled() {
		return csvSink, nil
	}

	store, err := cloud.New(cloudCfg, logger)
	if err != nil {
		return nil, err
	}
	return sink.NewMirroredSink(csvSink, store, logger), nil
}

func waitForShutdown(ctx context.Context, app *fiber.App, jobs service.EvaluationJobService, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelDrain()

	if err := jobs.Shutdown(drainCtx); err != nil {
		logger.Error().Err(err).Msg("evaluation jobs did not finish before shutdown")
	}

	logger.Info().Msg("server stopped")
}
