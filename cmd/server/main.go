package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/faqbot/internal/api"
	"github.com/eldtechnologies/faqbot/internal/bot"
	"github.com/eldtechnologies/faqbot/internal/config"
	"github.com/eldtechnologies/faqbot/internal/data"
	"github.com/eldtechnologies/faqbot/internal/handlers"
	"github.com/eldtechnologies/faqbot/internal/llm"
	"github.com/eldtechnologies/faqbot/internal/models"
	"github.com/eldtechnologies/faqbot/internal/store"
	"github.com/eldtechnologies/faqbot/internal/twilio"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Providers (constructed once, injected everywhere)
	openai, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:        cfg.OpenAIBaseURL,
		APIKey:         cfg.OpenAIAPIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Dimensions:     cfg.EmbeddingDims,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("openai client init failed")
	}

	// Knowledge store: Postgres+pgvector when configured, SQLite otherwise
	var vectors store.VectorStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDims)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		vectors = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath, cfg.EmbeddingDims)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		vectors = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite knowledge store")
	}
	defer vectors.Close()

	// Thread checkpoints: Redis when configured, in-memory otherwise
	var checkpoints store.CheckpointStore
	if cfg.RedisURL != "" {
		redisCheckpoints, err := store.NewRedisCheckpoints(ctx, cfg.RedisURL, cfg.ThreadTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisCheckpoints.Close()
		checkpoints = redisCheckpoints
		logger.Info().Msg("connected to Redis")
	} else {
		checkpoints = store.NewMemoryCheckpoints()
		logger.Warn().Msg("using in-memory thread checkpoints; threads are lost on restart")
	}

	// History windowing strategy
	var counter bot.Counter
	if cfg.HistoryCounter == "tokens" {
		tc, err := bot.NewTokenCounter()
		if err != nil {
			logger.Fatal().Err(err).Msg("token counter init failed")
		}
		counter = tc
	}
	windower := bot.NewWindower(cfg.HistoryBudget, counter)

	// Core wiring
	dataService := data.NewService(openai, vectors)
	retriever := bot.NewRetriever(dataService, logger)
	agent := bot.NewAgent(openai, retriever, checkpoints, windower, logger)

	sender := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber)
	persona := models.PersonaConfig{
		BotName:          cfg.BotName,
		About:            cfg.BotAbout,
		Tone:             cfg.BotTone,
		ResponseStyle:    cfg.BotResponseStyle,
		ConcisenessLevel: cfg.BotConciseness,
	}

	h := handlers.NewHandler(agent, dataService, vectors, sender, persona, cfg.TwilioAuthToken, !cfg.IsDevelopment(), logger)
	router := api.NewRouter(logger, h)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting faqbot server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
