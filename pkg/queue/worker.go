package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// StageHandler runs exactly one pipeline stage for an event. A nil next
// event with a nil error means the event needs no advancement (terminal
// stage or idempotency hit). An error means the attempt failed and the
// worker owns retry policy.
type StageHandler interface {
	Handle(ctx context.Context, event *models.IngestionEvent) (*models.IngestionEvent, error)
}

// Worker drains the input queue one message at a time. Retries are
// explicit requeues: the original delivery is always acknowledged.
type Worker struct {
	queue   Queue
	handler StageHandler
	cfg     config.QueueConfig
	logger  *slog.Logger
}

// NewWorker builds a worker. logger may be nil.
func NewWorker(q Queue, handler StageHandler, cfg config.QueueConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{queue: q, handler: handler, cfg: cfg, logger: logger}
}

// Run polls until the context is canceled. Empty polls back off by the
// configured poll timeout.
func (w *Worker) Run(ctx context.Context) error {
	for {
		processed, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("Queue cycle failed", "error", err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.PollTimeout):
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// RunOnce processes at most one message and reports whether one was
// received.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	msg, err := w.queue.ReceiveOne(ctx, w.cfg.InputQueue)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	// Retries and DLQ moves are fresh sends; the original delivery is done
	// either way.
	defer func() {
		if ackErr := w.queue.Acknowledge(ctx, msg.Handle); ackErr != nil {
			w.logger.Warn("Acknowledge failed", "handle", msg.Handle, "error", ackErr)
		}
	}()

	event, err := models.EventFromJSON(msg.Body)
	if err != nil {
		// An undecodable body can never succeed; park it for inspection.
		w.logger.Error("Poison message moved to DLQ", "error", err)
		return true, w.queue.Send(ctx, w.cfg.DLQ, msg.Body)
	}

	next, handleErr := w.handler.Handle(ctx, event)
	if handleErr != nil {
		return true, w.retryOrBury(ctx, event, handleErr)
	}

	if next == nil {
		w.logger.Info("Event complete",
			"content_source_id", event.ContentSourceID, "stage", string(event.Stage))
		return true, nil
	}

	body, err := next.ToJSON()
	if err != nil {
		return true, w.retryOrBury(ctx, event, err)
	}
	w.logger.Info("Stage advanced",
		"content_source_id", event.ContentSourceID,
		"from", string(event.Stage), "to", string(next.Stage))
	return true, w.queue.Send(ctx, w.cfg.InputQueue, body)
}

// retryOrBury re-enqueues the failed event with an incremented retry count,
// or moves it to the DLQ once the budget is spent. The event ID is
// preserved so the DLQ entry is traceable to the original submission.
func (w *Worker) retryOrBury(ctx context.Context, event *models.IngestionEvent, cause error) error {
	event.RetryCount++
	event.Error = cause.Error()

	body, err := event.ToJSON()
	if err != nil {
		return err
	}

	if event.RetryCount < event.MaxRetries {
		w.logger.Warn("Stage failed, requeueing",
			"content_source_id", event.ContentSourceID, "stage", string(event.Stage),
			"retry_count", event.RetryCount, "error", cause)
		return w.queue.Send(ctx, w.cfg.InputQueue, body)
	}

	w.logger.Error("Retries exhausted, moving to DLQ",
		"content_source_id", event.ContentSourceID, "stage", string(event.Stage),
		"retry_count", event.RetryCount, "error", cause)
	return w.queue.Send(ctx, w.cfg.DLQ, body)
}

// Replay drains the DLQ back into the input queue in FIFO order and
// returns the number of messages moved.
func Replay(ctx context.Context, q Queue, dlq, input string) (int, error) {
	moved := 0
	for {
		msg, err := q.ReceiveOne(ctx, dlq)
		if err != nil {
			return moved, err
		}
		if msg == nil {
			return moved, nil
		}
		if err := q.Send(ctx, input, msg.Body); err != nil {
			return moved, err
		}
		if err := q.Acknowledge(ctx, msg.Handle); err != nil {
			return moved, err
		}
		moved++
	}
}
