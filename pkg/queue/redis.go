package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a list-backed broker. Send RPUSHes; ReceiveOne LMOVEs the
// head into a per-queue processing list, so a crashed worker leaves its
// message visible for operator recovery instead of losing it.
// Acknowledge LREMs the entry from the processing list.
type RedisQueue struct {
	client *redis.Client

	mu      sync.Mutex
	pending map[string]pendingEntry
}

type pendingEntry struct {
	queue string
	body  []byte
}

// NewRedisQueue connects to the redis address and verifies it with a ping.
func NewRedisQueue(ctx context.Context, addr string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisQueue{client: client, pending: make(map[string]pendingEntry)}, nil
}

// NewRedisQueueFromClient wraps an existing client (tests).
func NewRedisQueueFromClient(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, pending: make(map[string]pendingEntry)}
}

func processingList(queue string) string {
	return queue + ":processing"
}

// Send appends the body to the tail of the named queue.
func (q *RedisQueue) Send(ctx context.Context, queue string, body []byte) error {
	if err := q.client.RPush(ctx, queue, body).Err(); err != nil {
		return fmt.Errorf("send to queue %s: %w", queue, err)
	}
	return nil
}

// ReceiveOne moves the head of the queue into the processing list and
// returns it. (nil, nil) on empty.
func (q *RedisQueue) ReceiveOne(ctx context.Context, queue string) (*Message, error) {
	body, err := q.client.LMove(ctx, queue, processingList(queue), "LEFT", "RIGHT").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive from queue %s: %w", queue, err)
	}

	handle := uuid.NewString()
	q.mu.Lock()
	q.pending[handle] = pendingEntry{queue: queue, body: body}
	q.mu.Unlock()

	return &Message{Handle: handle, Body: body}, nil
}

// Acknowledge removes the delivered entry from the processing list. An
// unknown handle is a no-op: the message was already acknowledged.
func (q *RedisQueue) Acknowledge(ctx context.Context, handle string) error {
	q.mu.Lock()
	entry, ok := q.pending[handle]
	delete(q.pending, handle)
	q.mu.Unlock()
	if !ok {
		return nil
	}

	if err := q.client.LRem(ctx, processingList(entry.queue), 1, entry.body).Err(); err != nil {
		return fmt.Errorf("acknowledge on queue %s: %w", entry.queue, err)
	}
	return nil
}

// Close releases the underlying client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
