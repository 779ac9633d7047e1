package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/config"
	"github.com/noah-isme/phybench-api/internal/database"
	"github.com/noah-isme/phybench-api/internal/handler"
	"github.com/noah-isme/phybench-api/internal/middleware"
	"github.com/noah-isme/phybench-api/internal/repository"
	"github.com/noah-isme/phybench-api/internal/router"
	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/pkg/ai"
	cloud "github.com/noah-isme/phybench-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; stats caching and redis review events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	var storage service.FileStorage
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials not set; attachment uploads disabled")
	}

	var solver ai.Solver
	if cfg.OpenAIAPIKey != "" {
		openAISolver, err := ai.NewOpenAISolver(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create openai solver")
		}
		solver = openAISolver
	} else {
		logger.Warn().Msg("openai api key not set; ai evaluation disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	problemRepo := repository.NewProblemRepository(db)
	userRepo := repository.NewUserRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	scoreEventRepo := repository.NewScoreEventRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	publisher := service.NewReviewEventPublisher(redisClient, natsConn, cfg.EventChannelBase, logger)

	statsService := service.NewStatsService(problemRepo, userRepo, redisClient, cfg.StatsCacheTTL, logger)
	problemService := service.NewProblemService(problemRepo, userRepo, validate, activityService, statsService, cfg.DefaultPageSize, logger)
	reviewService := service.NewReviewService(problemRepo, userRepo, reviewRepo, validate, activityService, publisher, statsService, logger)
	scoreService := service.NewScoreService(scoreEventRepo, validate, activityService, logger)
	exportService := service.NewExportService(problemRepo, validate, activityService, logger)
	curationService := service.NewCurationService(problemRepo, validate, activityService, logger)
	aiEvaluationService := service.NewAIEvaluationService(problemRepo, solver, activityService, logger)
	attachmentService := service.NewAttachmentService(storage, problemRepo, userRepo, cfg.UploadMaxSizeMB, logger)
	userService := service.NewUserService(userRepo, validate, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.AllowedOrigins,
		AccessLog:      cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		ProblemHandler:      handler.NewProblemHandler(problemService, logger),
		ReviewHandler:       handler.NewReviewHandler(reviewService, logger),
		AttachmentHandler:   handler.NewAttachmentHandler(attachmentService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		StatsHandler:        handler.NewStatsHandler(statsService, logger),
		ExportHandler:       handler.NewExportHandler(exportService, logger),
		CurationHandler:     handler.NewCurationHandler(curationService, logger),
		ScoreHandler:        handler.NewScoreHandler(scoreService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		AIEvaluationHandler: handler.NewAIEvaluationHandler(aiEvaluationService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
