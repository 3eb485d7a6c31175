package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/adapters"
	"github.com/satriahrh/chatwidget/adapters/llm"
	"github.com/satriahrh/chatwidget/adapters/retrieval"
	"github.com/satriahrh/chatwidget/domain/repositories"
	"github.com/satriahrh/chatwidget/internal/api"
	"github.com/satriahrh/chatwidget/internal/auth"
	"github.com/satriahrh/chatwidget/internal/config"
	"github.com/satriahrh/chatwidget/internal/websocket"
	"github.com/satriahrh/chatwidget/usecase"
)

func main() {
	// Initialize logger
	logger, err := newLogger(zap.NewProduction)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the model before accepting traffic; without one there is nothing to serve
	generator, err := llm.NewGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load model", zap.String("provider", cfg.Provider), zap.Error(err))
	}
	logger.Info("Model loaded",
		zap.String("provider", cfg.Provider),
		zap.String("model", generator.Model()))

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, session tokens will not survive a restart")
	}

	// Initialize adapters
	sessionRepo := adapters.NewMemorySessionRepository(cfg.HistoryTurns)

	var retriever repositories.Retriever
	if cfg.RetrievalEnabled() {
		store, err := buildVectorStore(ctx, cfg, logger)
		if err != nil {
			logger.Error("Retrieval disabled", zap.Error(err))
		} else {
			retriever = store
		}
	}

	// Initialize usecase services
	chatService := usecase.NewChatService(generator, usecase.ChatServiceConfig{
		MaxNewTokens:  cfg.MaxNewTokens,
		Timeout:       cfg.GenerateTimeout,
		Retriever:     retriever,
		RetrievalTopK: cfg.RetrievalTopK,
	}, logger)
	conversationService := usecase.NewConversationService(sessionRepo, chatService, logger)
	signer := auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL)

	// Initialize WebSocket hub with conversation service
	hub := websocket.NewHub(conversationService, signer, logger)
	go hub.Run(ctx)

	cleanup := websocket.NewSessionCleanupService(sessionRepo, cfg.SessionIdleTTL, time.Minute, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	widget := api.WidgetConfig{
		Title:       cfg.Title,
		Description: cfg.Description,
		Examples:    cfg.Examples,
		HistorySize: cfg.HistoryTurns,
	}
	if err := api.InitRoutes(e, hub, conversationService, signer, widget, generator.Model(), logger); err != nil {
		logger.Fatal("Failed to initialize routes", zap.Error(err))
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("Server exited")
}

// newLogger builds the process logger, reporting failure instead of handing
// back a nil logger
func newLogger(build func(...zap.Option) (*zap.Logger, error)) (*zap.Logger, error) {
	logger, err := build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logger == nil {
		return nil, fmt.Errorf("failed to initialize logger: no logger returned")
	}
	return logger, nil
}

// buildVectorStore embeds the configured corpus: inline documents first, then
// those of the corpus file
func buildVectorStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*retrieval.VectorStore, error) {
	documents := append([]string(nil), cfg.Corpus...)
	if cfg.CorpusFile != "" {
		fromFile, err := retrieval.LoadCorpus(cfg.CorpusFile)
		if err != nil {
			return nil, err
		}
		documents = append(documents, fromFile...)
	}

	embedder, err := llm.NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return retrieval.NewVectorStore(ctx, embedder, documents, logger)
}
