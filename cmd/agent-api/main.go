// Agent API edge server: WebSocket session channel, feedback submission,
// and health. Fans out per turn to the retrieval services over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunoleme/ai-travel-assistant/pkg/api"
	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/feedback"
	"github.com/brunoleme/ai-travel-assistant/pkg/mcp"
	"github.com/brunoleme/ai-travel-assistant/pkg/memory"
	"github.com/brunoleme/ai-travel-assistant/pkg/orchestrator"
	"github.com/brunoleme/ai-travel-assistant/pkg/trace"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	registry, err := contract.NewRegistry()
	if err != nil {
		slog.Error("Failed to compile contract schemas", "error", err)
		os.Exit(1)
	}

	fb, err := feedback.NewStore(cfg.FeedbackPath)
	if err != nil {
		slog.Error("Failed to open feedback store", "path", cfg.FeedbackPath, "error", err)
		os.Exit(1)
	}

	client := mcp.NewClient(cfg, registry)
	tracer := trace.New(cfg.TracingEnabled)
	orch := orchestrator.New(client, memory.NewStore(), registry, tracer, logger)
	server := api.NewServer(orch, fb, registry, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Agent API listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}
