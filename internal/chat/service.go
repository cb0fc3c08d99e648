package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chat-backend/internal/database"
	"chat-backend/internal/messaging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	replier Replier
	events  messaging.Publisher
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService builds the chat service. events may be nil, in which case no
// message_events are published.
func NewService(db *gorm.DB, replier Replier, events messaging.Publisher, opts ...Option) *Service {
	s := &Service{
		db:      db,
		replier: replier,
		events:  events,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetCurrentUser(ctx context.Context, apiKey string) (database.User, error) {
	return GetUserByAPIKey(ctx, s.db, apiKey)
}

func (s *Service) ListUsers(ctx context.Context) ([]database.User, error) {
	return ListUsers(ctx, s.db)
}

// GetThread provisions the user's thread if needed and returns it with its
// messages in conversation order.
func (s *Service) GetThread(ctx context.Context, user database.User) (database.Thread, error) {
	thread, err := GetOrCreateThread(ctx, s.db, user.ID, s.now())
	if err != nil {
		return database.Thread{}, err
	}

	messages, err := GetThreadMessages(ctx, s.db, thread.ID)
	if err != nil {
		return database.Thread{}, err
	}
	thread.Messages = messages

	return thread, nil
}

// PostMessage stores content as a user message followed by a bot reply. Both
// rows, and the thread if this is the user's first access, commit together or
// not at all.
func (s *Service) PostMessage(ctx context.Context, user database.User, content string) (database.Message, database.Message, error) {
	var userMsg, botMsg database.Message

	err := s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		thread, err := GetOrCreateThread(ctx, txn, user.ID, s.now())
		if err != nil {
			return err
		}

		userMsg = database.Message{
			ThreadID:   thread.ID,
			Content:    content,
			IsFromUser: true,
			CreatedAt:  Timestamp(s.now()),
		}
		if err := CreateMessage(ctx, txn, &userMsg); err != nil {
			return err
		}

		reply, err := s.replier.Reply(ctx, content)
		if err != nil {
			return fmt.Errorf("error generating reply: %w", err)
		}
		if reply == "" {
			return errors.New("replier returned an empty reply")
		}

		// the reply never sorts before the message it answers, even if the clock steps back
		botAt := Timestamp(s.now())
		if botAt.Before(userMsg.CreatedAt) {
			botAt = userMsg.CreatedAt
		}

		botMsg = database.Message{
			ThreadID:   thread.ID,
			Content:    reply,
			IsFromUser: false,
			CreatedAt:  botAt,
		}
		return CreateMessage(ctx, txn, &botMsg)
	})
	if err != nil {
		return database.Message{}, database.Message{}, err
	}

	s.publishMessagePosted(ctx, user, userMsg, botMsg)

	return userMsg, botMsg, nil
}

func (s *Service) publishMessagePosted(ctx context.Context, user database.User, userMsg, botMsg database.Message) {
	if s.events == nil {
		return
	}

	payload := messaging.MessagePostedPayload{
		EventId:       uuid.New(),
		UserId:        user.ID,
		ThreadId:      userMsg.ThreadID,
		UserMessageId: userMsg.ID,
		BotMessageId:  botMsg.ID,
		CreatedAt:     botMsg.CreatedAt,
	}
	// The messages are already committed, so a failed publish only loses the event.
	if err := s.events.PublishMessagePosted(ctx, payload); err != nil {
		slog.Error("failed to publish message posted event", "user_id", user.ID, "thread_id", userMsg.ThreadID, "error", err)
	}
}
