// Package queue is the transport between ingestion stages: named FIFO
// queues with explicit acknowledgment. Two implementations exist, a redis
// list broker for deployment and an in-memory broker for tests and local
// runs.
package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Message is one received queue entry. The handle acknowledges exactly this
// delivery.
type Message struct {
	Handle string
	Body   []byte
}

// Queue is the broker surface the worker and replay tool are written
// against. ReceiveOne returns (nil, nil) when the queue is empty; a
// received message stays pending until acknowledged.
type Queue interface {
	ReceiveOne(ctx context.Context, queue string) (*Message, error)
	Send(ctx context.Context, queue string, body []byte) error
	Acknowledge(ctx context.Context, handle string) error
}

// MemoryQueue is an in-process broker. Pending messages are tracked per
// handle so duplicate acknowledgment is a no-op.
type MemoryQueue struct {
	mu      sync.Mutex
	queues  map[string][][]byte
	pending map[string][]byte
}

// NewMemoryQueue returns an empty in-memory broker.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		queues:  make(map[string][][]byte),
		pending: make(map[string][]byte),
	}
}

// Send appends the body to the named queue.
func (q *MemoryQueue) Send(_ context.Context, queue string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[queue] = append(q.queues[queue], append([]byte(nil), body...))
	return nil
}

// ReceiveOne pops the oldest message and parks it as pending.
func (q *MemoryQueue) ReceiveOne(_ context.Context, queue string) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.queues[queue]
	if len(items) == 0 {
		return nil, nil
	}
	body := items[0]
	q.queues[queue] = items[1:]

	handle := uuid.NewString()
	q.pending[handle] = body
	return &Message{Handle: handle, Body: body}, nil
}

// Acknowledge drops the pending entry for the handle.
func (q *MemoryQueue) Acknowledge(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, handle)
	return nil
}

// Len reports the number of waiting (not pending) messages.
func (q *MemoryQueue) Len(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[queue])
}
