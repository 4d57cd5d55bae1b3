package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promptcraft-backend/internal/config"
	"promptcraft-backend/internal/database"
	"promptcraft-backend/internal/handlers"
	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/middleware"
	"promptcraft-backend/internal/repository"
	"promptcraft-backend/internal/router"
	"promptcraft-backend/internal/services"
	"promptcraft-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}
	log.Info("starting promptcraft backend", "env", cfg.Env, "history_backend", cfg.HistoryBackend)

	ctx := context.Background()

	// ──── Step 2: Connect the History Store ────
	var store repository.KVStore
	switch cfg.HistoryBackend {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres connection failed", "error", err)
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
			log.Fatal("database migration failed", "error", err)
		}
		store = repository.NewPostgresKV(pool)
	default:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connection failed", "error", err)
		}
		defer client.Close()
		store = repository.NewRedisKV(client)
	}
	log.Info("history store connected")

	// ──── Step 3: Model Client ────
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY is not set; generation requests will fail until it is configured")
	}
	gemini := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, log)

	// ──── Step 4: Services and Handlers ────
	jwtAuth := middleware.NewJWTAuth(cfg.SessionSecret)
	composer := services.NewComposer(gemini, log)
	history := services.NewHistoryService(store, log)
	fileExtract := services.NewFileExtractService()

	sessionHandler := handlers.NewSessionHandler(jwtAuth, log)
	promptHandler := handlers.NewPromptHandler(composer, history, log)
	historyHandler := handlers.NewHistoryHandler(history)
	fileHandler := handlers.NewFileHandler(fileExtract)
	wsHub := websocket.NewHub(jwtAuth, gemini, cfg.FrontendURL, log)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		sessionHandler,
		promptHandler,
		historyHandler,
		fileHandler,
		wsHub,
		cfg.FrontendURL,
		cfg.GenerateRatePerMin,
		log,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Deep-thought generations can run for minutes and chat sockets are
		// long lived, so writes are not bounded at the server level.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		wsHub.CloseAll()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}()

	log.Info("promptcraft backend ready",
		"api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
		"chat", fmt.Sprintf("ws://localhost:%s/api/v1/chat/ws", cfg.Port),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", "error", err)
	}
}
