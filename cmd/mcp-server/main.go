// MCP retrieval server: hosts one retrieval service per process, selected
// by -service, or all six for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/llm"
	"github.com/brunoleme/ai-travel-assistant/pkg/retrieval"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

func main() {
	service := flag.String("service", "all",
		"retrieval service to host: knowledge, products, graph, vision, stt, tts, or all")
	flag.Parse()

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

	deps := &retrieval.Deps{
		Config:   cfg,
		Registry: registry,
		Logger:   logger,
		LLM:      llm.New(cfg.OpenAIAPIKey),
	}
	if deps.LLM == nil {
		slog.Warn("OPENAI_API_KEY not set; vision/stt/tts serve mock results")
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoStore, err := store.NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	cancel()
	if err != nil {
		slog.Warn("MongoDB unavailable, using in-memory stores", "error", err)
		deps.Vector = store.NewMemoryVectorStore()
		deps.Graph = store.NewMemoryGraphStore()
	} else {
		indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mongoStore.EnsureIndexes(indexCtx); err != nil {
			slog.Warn("Index creation failed", "error", err)
		}
		cancel()
		deps.Vector = mongoStore
		deps.Graph = mongoStore
	}

	constructors := map[string]func(*retrieval.Deps) retrieval.Endpoint{
		"knowledge": func(d *retrieval.Deps) retrieval.Endpoint { return retrieval.NewKnowledgeService(d) },
		"products":  func(d *retrieval.Deps) retrieval.Endpoint { return retrieval.NewProductsService(d) },
		"graph":     func(d *retrieval.Deps) retrieval.Endpoint { return retrieval.NewGraphService(d) },
		"vision":    func(d *retrieval.Deps) retrieval.Endpoint { return retrieval.NewVisionService(d) },
		"stt":       func(d *retrieval.Deps) retrieval.Endpoint { return retrieval.NewSTTService(d) },
		"tts":       func(d *retrieval.Deps) retrieval.Endpoint { return retrieval.NewTTSService(d) },
	}

	var endpoints []retrieval.Endpoint
	if *service == "all" {
		for _, name := range []string{"knowledge", "products", "graph", "vision", "stt", "tts"} {
			endpoints = append(endpoints, constructors[name](deps))
		}
	} else {
		build, ok := constructors[*service]
		if !ok {
			slog.Error("Unknown service", "service", *service)
			os.Exit(1)
		}
		endpoints = append(endpoints, build(deps))
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           retrieval.NewRouter(endpoints...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening", "addr", cfg.ListenAddr, "service", *service)
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

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}
