package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/suppbot/server/internal/api"
	"github.com/suppbot/server/internal/catalog"
	"github.com/suppbot/server/internal/core"
	"github.com/suppbot/server/internal/dashboard"
	"github.com/suppbot/server/internal/db"
	"github.com/suppbot/server/internal/llm"
	"github.com/suppbot/server/internal/model"
	"github.com/suppbot/server/internal/pipeline"
	"github.com/suppbot/server/internal/session"
	logx "github.com/suppbot/server/pkg/logger"
	pkgredis "github.com/suppbot/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Server   model.ServerConfig
	Database model.DatabaseConfig
	Redis    pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	SQLModel     model.SQLModelConfig
	AnswerModel  model.AnswerModelConfig
	Conversation model.ConversationConfig
	Pipeline     model.PipelineConfig
	Prompt       model.PromptConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Server.Environment)})

	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() { _ = database.Close() }()
	logx.Info().Str("host", cfg.Database.Host).Str("name", cfg.Database.Name).Msg("Connected to PostgreSQL")

	store, closeStore, err := buildSessionStore(cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise session store")
	}
	defer closeStore()

	models, err := llm.NewChatModels(ctx, llm.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		SQLConfig:    &cfg.SQLModel,
		AnswerConfig: &cfg.AnswerModel,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise chat models")
	}

	requestTimeout, err := time.ParseDuration(cfg.Pipeline.RequestTimeout)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.Pipeline.RequestTimeout).Msg("Invalid PIPELINE_REQUEST_TIMEOUT")
	}

	chat, err := pipeline.New(ctx, &pipeline.GraphConfig{
		Models:          models,
		Store:           store,
		Introspector:    db.NewIntrospector(database, nil),
		Executor:        db.NewExecutor(database, cfg.Pipeline.RowLimit),
		Prompt:          cfg.Prompt,
		MaxHistoryTurns: cfg.Conversation.History.MaxTurns,
	}, requestTimeout)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build chat pipeline")
	}

	handler := api.NewHandler(
		chat,
		dashboard.NewService(database, dashboard.DefaultCacheTTL),
		catalog.New(database, nil),
		database,
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutdown signal received")

	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	logx.Info().Msg("Server stopped")
}

// buildSessionStore picks the session driver from config. The Redis driver
// survives restarts and expires idle sessions; the memory driver is the
// zero-infrastructure default.
func buildSessionStore(cfg AppConfig) (session.Store, func(), error) {
	switch cfg.Conversation.Backend {
	case "redis":
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			return nil, nil, err
		}
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, nil, err
		}
		logx.Info().Msg("Using Redis session store")
		return session.NewRedisStore(rdb, ttl), func() { _ = rdb.Close() }, nil
	default:
		logx.Info().Msg("Using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}
}
