package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/boardnight/server/cache"
	"github.com/boardnight/server/config"
	"github.com/boardnight/server/db"
	"github.com/boardnight/server/handlers"
	"github.com/boardnight/server/middleware"
	"github.com/boardnight/server/realtime"
	"github.com/boardnight/server/repositories"
	api "github.com/boardnight/server/routes"
	"github.com/boardnight/server/services"
	"github.com/boardnight/server/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handlers.SetLogger(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Rate limiting degrades to no-op without Redis, so a missing REDIS_ADDR
	// is not fatal.
	var limiter middleware.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		limiter = cache.NewRateLimiter(redisClient)
		logger.Info("redis rate limiter initialized", slog.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set, rate limiting disabled")
	}

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 configuration not set, avatar uploads disabled")
	}

	wsHub := realtime.NewHub(logger)
	go wsHub.Run()

	txRunner := repositories.NewTxRunner(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	nightRepo := repositories.NewPostgresNightRepository(dbConn)
	scoreRepo := repositories.NewPostgresNightScoreRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	friendRepo := repositories.NewPostgresFriendRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditRepository(dbConn)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, ratingRepo, uploader, logger)
	gameService := services.NewGameService(gameRepo, uploader)
	friendService := services.NewFriendService(friendRepo, userRepo)
	nightService := services.NewNightService(
		txRunner, nightRepo, scoreRepo, ratingRepo, friendRepo,
		gameRepo, userRepo, auditRepo, wsHub, logger,
	)
	tournamentService := services.NewTournamentService(
		txRunner, tournamentRepo, participantRepo, matchRepo, ratingRepo,
		gameRepo, userRepo, auditRepo, wsHub, logger, rng,
	)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		User:       handlers.NewUserHandler(userService),
		Game:       handlers.NewGameHandler(gameService),
		Night:      handlers.NewNightHandler(nightService),
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Friend:     handlers.NewFriendHandler(friendService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, logger),
	}, middleware.NewAuthenticator(cfg.JWTSecretKey), limiter, logger)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	}
}
