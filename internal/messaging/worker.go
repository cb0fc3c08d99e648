package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Handler processes the raw payload of one task. Returning an error wrapping
// ErrBadPayload rejects the task; any other error nacks it.
type Handler func(ctx context.Context, payload []byte) error

type Worker struct {
	receiver Receiver

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewWorker(receiver Receiver) *Worker {
	return &Worker{
		receiver: receiver,
		handlers: make(map[string]Handler),
	}
}

func (w *Worker) Handle(taskType string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = handler
}

// Run consumes tasks until ctx is cancelled or the receiver's task channel is
// closed.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping", "reason", ctx.Err())
			return nil
		case task, ok := <-w.receiver.Tasks():
			if !ok {
				slog.Info("task channel closed, worker stopping")
				return nil
			}
			w.process(ctx, task)
		}
	}
}

func (w *Worker) process(ctx context.Context, task Task) {
	w.mu.RLock()
	handler, ok := w.handlers[task.Type()]
	w.mu.RUnlock()

	if !ok {
		slog.Warn("received task of unknown type, discarding", "type", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("failed to reject task", "type", task.Type(), "error", err)
		}
		return
	}

	if err := handler(ctx, task.Payload()); err != nil {
		if errors.Is(err, ErrBadPayload) {
			slog.Error("rejecting malformed task", "type", task.Type(), "error", err)
			if err := task.Reject(); err != nil {
				slog.Error("failed to reject task", "type", task.Type(), "error", err)
			}
			return
		}
		slog.Error("error processing task", "type", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("failed to nack task", "type", task.Type(), "error", err)
		}
		return
	}

	if err := task.Ack(); err != nil {
		slog.Error("failed to ack task", "type", task.Type(), "error", err)
	}
}

// MessagePostedHandler decodes message_events payloads before handing them to fn.
func MessagePostedHandler(fn func(ctx context.Context, payload MessagePostedPayload) error) Handler {
	return func(ctx context.Context, data []byte) error {
		var payload MessagePostedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return fn(ctx, payload)
	}
}

// LogMessagePosted is the default message_events handler used by cmd/worker.
func LogMessagePosted(ctx context.Context, payload MessagePostedPayload) error {
	slog.Info("message posted",
		"event_id", payload.EventId,
		"user_id", payload.UserId,
		"thread_id", payload.ThreadId,
		"user_message_id", payload.UserMessageId,
		"bot_message_id", payload.BotMessageId,
		"created_at", payload.CreatedAt,
	)
	return nil
}
