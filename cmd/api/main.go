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

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/config"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/database"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/handler"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/middleware"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/repository"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/router"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/service"
	"github.com/ahmedsarwar7575/naati-speaking-api/pkg/ai"
	cloud "github.com/ahmedsarwar7575/naati-speaking-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectProgressRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, progress caching disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	} else {
		logger.Warn().Msg("redis url not configured, progress caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, event publishing disabled")
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	speech, err := ai.NewOpenAIService(ai.OpenAIConfig{
		APIKey:          cfg.OpenAIAPIKey,
		TranscribeModel: cfg.TranscribeModel,
		ScoreModel:      cfg.ScoreModel,
		OverallModel:    cfg.OverallModel,
		Logger:          logger,
	})
	if err != nil {
		log.Fatalf("failed to create speech service: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	cache := service.NewProgressCache(redisClient, cfg.ProgressCacheTTL, logger)
	events := service.NewEventPublisher(natsConn, logger)

	mockTestService := service.NewMockTestService(store, cache, validate, cfg.MockTest, logger)
	submitService := service.NewSubmitService(store, speech, uploader, events, cache, validate, cfg.MockTest, logger)
	finalResultService := service.NewFinalResultService(store, speech, events, cache, cfg.MockTest, logger)
	sessionTimeService := service.NewSessionTimeService(store, validate, logger)

	mockTestHandler := handler.NewMockTestHandler(mockTestService, submitService, finalResultService, logger)
	sessionTimeHandler := handler.NewSessionTimeHandler(sessionTimeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MockTestHandler:    mockTestHandler,
		SessionTimeHandler: sessionTimeHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
