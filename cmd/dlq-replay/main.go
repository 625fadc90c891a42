// Operator tool: drains the ingestion DLQ back into the input queue in
// FIFO order and prints the number of messages moved.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/queue"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	broker, err := queue.NewRedisQueue(ctx, cfg.RedisAddr)
	if err != nil {
		slog.Error("Redis unavailable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	moved, err := queue.Replay(ctx, broker, cfg.Queue.DLQ, cfg.Queue.InputQueue)
	if err != nil {
		slog.Error("Replay failed", "moved_before_error", moved, "error", err)
		os.Exit(1)
	}
	fmt.Printf("replayed %d message(s) from %s to %s\n", moved, cfg.Queue.DLQ, cfg.Queue.InputQueue)
}
