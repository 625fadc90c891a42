// Package ingest implements the staged ingestion pipeline: fetch,
// transcript, chunk, enrich, embed, write. Stage handlers are pure
// transitions over an ingestion event plus external effects, wrapped by an
// idempotency guard keyed on content_source_id|stage.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// Idempotency is the check-then-mark store shared by all workers. Mark
// reports whether this caller won; under concurrent duplicate deliveries at
// most one caller sees true.
type Idempotency interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) (bool, error)
}

// IdempotencyKey builds the per-stage deduplication key.
func IdempotencyKey(contentSourceID string, stage models.Stage) string {
	return contentSourceID + "|" + string(stage)
}

// MemoryIdempotency is the in-process implementation.
type MemoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

// NewMemoryIdempotency returns an empty set.
func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{keys: make(map[string]bool)}
}

// Seen reports whether the key is marked.
func (m *MemoryIdempotency) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

// Mark sets the key; false means another caller got there first.
func (m *MemoryIdempotency) Mark(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

// RedisIdempotency externalizes the set so parallel worker processes share
// it. Marks are SETNX, so the at-most-one-winner contract holds across
// processes.
type RedisIdempotency struct {
	client *redis.Client
	prefix string
}

// NewRedisIdempotency wraps a client; keys are namespaced under prefix.
func NewRedisIdempotency(client *redis.Client, prefix string) *RedisIdempotency {
	if prefix == "" {
		prefix = "ingest:idem:"
	}
	return &RedisIdempotency{client: client, prefix: prefix}
}

func (r *RedisIdempotency) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency check %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *RedisIdempotency) Mark(ctx context.Context, key string) (bool, error) {
	won, err := r.client.SetNX(ctx, r.prefix+key, "1", 0).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency mark %s: %w", key, err)
	}
	return won, nil
}
