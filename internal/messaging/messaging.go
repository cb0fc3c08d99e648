package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MessageEventsQueue = "message_events"
	RetryDelay         = 5 * time.Second
	MaxConnectRetry    = 5
	PublishTimeout     = 5 * time.Second
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
	ErrBadPayload  = errors.New("malformed task payload")
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// MessagePostedPayload announces a committed user/bot message pair.
type MessagePostedPayload struct {
	EventId       uuid.UUID
	UserId        uint
	ThreadId      uint
	UserMessageId uint
	BotMessageId  uint
	CreatedAt     time.Time
}

type Publisher interface {
	PublishMessagePosted(ctx context.Context, payload MessagePostedPayload) error

	Close()
}

type Receiver interface {
	Tasks() <-chan Task

	Close()
}
