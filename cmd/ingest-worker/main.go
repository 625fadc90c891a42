// Ingestion worker: polls the input queue and runs one pipeline stage per
// message, with redis-backed idempotency shared across worker processes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/ingest"
	"github.com/brunoleme/ai-travel-assistant/pkg/llm"
	"github.com/brunoleme/ai-travel-assistant/pkg/queue"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
	"github.com/brunoleme/ai-travel-assistant/pkg/subtitles"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// The queue is the durable backbone; without it the worker has nothing
	// to do.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		slog.Error("Redis unavailable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	broker := queue.NewRedisQueueFromClient(redisClient)
	idem := ingest.NewRedisIdempotency(redisClient, "")

	var vector store.VectorStore
	var graph store.GraphStore
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	mongoStore, err := store.NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	cancel()
	if err != nil {
		slog.Warn("MongoDB unavailable, using in-memory stores", "error", err)
		vector = store.NewMemoryVectorStore()
		graph = store.NewMemoryGraphStore()
	} else {
		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := mongoStore.EnsureIndexes(indexCtx); err != nil {
			slog.Warn("Index creation failed", "error", err)
		}
		cancel()
		vector = mongoStore
		graph = mongoStore
	}

	client := llm.New(cfg.OpenAIAPIKey)
	if client == nil {
		slog.Warn("OPENAI_API_KEY not set; enrichment uses fallback cards and graph extraction is skipped")
	}

	pipeline := ingest.NewPipeline(
		idem, vector, graph,
		subtitles.NewFetcher(cfg.SubtitleLangs),
		ingest.NewEnricher(client, cfg.Models.Enrich, logger),
		ingest.NewExtractor(client, cfg.Models.Enrich, logger),
		logger,
	)

	worker := queue.NewWorker(broker, pipeline, cfg.Queue, logger)
	slog.Info("Ingestion worker started",
		"queue", cfg.Queue.InputQueue, "dlq", cfg.Queue.DLQ, "max_retries", cfg.Queue.MaxRetries)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
