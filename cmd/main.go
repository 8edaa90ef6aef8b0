package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/satriahrh/drx-chat/adapters"
	"github.com/satriahrh/drx-chat/adapters/llm"
	"github.com/satriahrh/drx-chat/adapters/mongo"
	"github.com/satriahrh/drx-chat/adapters/redis"
	"github.com/satriahrh/drx-chat/config"
	"github.com/satriahrh/drx-chat/domain/repositories"
	"github.com/satriahrh/drx-chat/internal/api"
	"github.com/satriahrh/drx-chat/internal/auth"
	"github.com/satriahrh/drx-chat/internal/websocket"
	"github.com/satriahrh/drx-chat/usecase"
)

const revocationCleanupInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize logger
	logger := newLogger(cfg.HTTP.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	users, closeUsers := newUserStore(ctx, cfg, logger)
	defer closeUsers()

	seeds, err := cfg.Auth.ParseSeedUsers()
	if err != nil {
		logger.Fatal("Invalid SEED_USERS", zap.Error(err))
	}
	for _, seed := range seeds {
		if err := adapters.SeedUser(ctx, users, seed.Email, seed.Password, seed.Name); err != nil {
			logger.Fatal("Failed to seed user", zap.String("email", seed.Email), zap.Error(err))
		}
	}
	logger.Info("Seeded users", zap.Int("count", len(seeds)))

	revoked, closeRevoked := newRevocationStore(ctx, cfg, logger)
	defer closeRevoked()

	model, err := llm.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM", zap.Error(err))
	}

	// Initialize usecase services
	validate := validator.New()
	relay := usecase.NewMessageRelay(model, validate, logger, usecase.WithUpstreamTimeout(cfg.LLM.RelayTimeout))

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	sessions := auth.NewSessions(issuer, users, revoked, cfg.Auth.CookieName, cfg.Auth.SecureCookie, logger)

	cleanup := auth.NewRevocationCleanupService(revoked, revocationCleanupInterval, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Initialize WebSocket hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub(relay, cfg.LLM.DefaultModel, websocket.NewMessageValidator(validate), logger)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewRequestValidator(validate)

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Hub:      hub,
		Relay:    relay,
		Catalog:  adapters.NewStaticModelCatalog(),
		Users:    users,
		Sessions: sessions,
		Logger:   logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.HTTP.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.HTTP.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("user_store", cfg.UserStore),
		zap.String("revocation_store", cfg.Auth.RevocationStore))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// close page sessions and let pending replies resolve
	stopHub()
	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		logger.Warn("Timed out waiting for page sessions to close")
	}

	logger.Info("Server exited")
}

func newLogger(level string) *zap.Logger {
	if level == "development" {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func newUserStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.UserRepository, func()) {
	if cfg.UserStore != config.StoreMongo {
		return adapters.NewMemoryUserRepository(), func() {}
	}

	client, err := mongo.NewClient(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	repo := mongo.NewUserRepository(client.Database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to create user indexes", zap.Error(err))
	}

	return repo, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Close(ctx)
	}
}

func newRevocationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.RevocationStore, func()) {
	if cfg.Auth.RevocationStore != config.StoreRedis {
		return adapters.NewMemoryRevocationStore(), func() {}
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Successfully connected to Redis", zap.String("addr", cfg.Redis.Addr))

	return redis.NewRevocationStore(rdb), func() {
		if err := rdb.Close(); err != nil {
			logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}
}
