package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hautbar/barkeep/internal/api"
	"github.com/hautbar/barkeep/internal/bus"
	"github.com/hautbar/barkeep/internal/config"
	"github.com/hautbar/barkeep/internal/embedding"
	"github.com/hautbar/barkeep/internal/llm"
	"github.com/hautbar/barkeep/internal/memory"
	"github.com/hautbar/barkeep/internal/rag"
	"github.com/hautbar/barkeep/internal/vector"
	"github.com/hautbar/barkeep/internal/vector/postgres"
	"github.com/hautbar/barkeep/internal/vector/qdrant"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("barkeep starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.LLMAPIKey == "" {
		slog.Error("LLM_API_KEY is required")
		os.Exit(1)
	}
	generator := llm.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	slog.Info("llm client ready", "model", cfg.LLMModel)

	embedder := embedding.New(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.EmbeddingModel)
	slog.Info("embedder ready", "model", cfg.EmbeddingModel)

	index, err := newIndex(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to vector store", "backend", cfg.VectorBackend, "error", err)
		os.Exit(1)
	}
	defer index.Close()
	slog.Info("vector store connected", "backend", cfg.VectorBackend)

	// Event bus is optional; barkeep answers fine without it.
	var events *bus.Client
	if cfg.NatsURL != "" {
		events, err = bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer events.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without event publishing")
	}

	prefs := memory.NewService(generator, embedder, index, events, slog.Default())
	responder := rag.NewResponder(prefs, embedder, index, generator, events, cfg.LegacyCountClamp, slog.Default())

	srv := api.NewServer(cfg.Port, responder, cfg.StaticDir, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if events != nil {
		if err := events.Publish(bus.SubjectServiceRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("barkeep ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("barkeep stopped")
}

func newIndex(ctx context.Context, cfg config.Config) (vector.Index, error) {
	switch cfg.VectorBackend {
	case "postgres":
		return postgres.New(ctx, cfg.DatabaseURL, cfg.EmbeddingDim, slog.Default())
	default:
		return qdrant.New(cfg.QdrantHost, cfg.QdrantPort, cfg.CocktailsIndex, cfg.MemoriesIndex, uint64(cfg.EmbeddingDim), slog.Default())
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
