// Package archive exports every user's conversation to an object store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/internal/storage"
	"chat-backend/internal/utils"
	"chat-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TranscriptPrefix = "transcripts"

type Transcript struct {
	User       api.User      `json:"user"`
	ThreadId   uint          `json:"thread_id"`
	Messages   []api.Message `json:"messages"`
	ArchivedAt time.Time     `json:"archived_at"`
}

type Summary struct {
	RunId   uuid.UUID
	Written int
	Skipped int
}

type outcome int

const (
	written outcome = iota
	skipped
)

type Archiver struct {
	db       *gorm.DB
	store    storage.ObjectStore
	workers  int
	progress func(done, total int)
}

type Option func(*Archiver)

func WithWorkers(n int) Option {
	return func(a *Archiver) {
		a.workers = n
	}
}

// WithProgress registers a callback invoked after each user is processed.
func WithProgress(fn func(done, total int)) Option {
	return func(a *Archiver) {
		a.progress = fn
	}
}

func NewArchiver(db *gorm.DB, store storage.ObjectStore, opts ...Option) *Archiver {
	a := &Archiver{db: db, store: store, workers: 4}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func TranscriptKey(runId uuid.UUID, userId uint) string {
	return fmt.Sprintf("%s/%s/user-%d.json", TranscriptPrefix, runId, userId)
}

// Run writes one transcript per user that has a thread. Users without a thread
// are skipped; archiving never provisions threads.
func (a *Archiver) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunId: uuid.New()}

	users, err := chat.ListUsers(ctx, a.db)
	if err != nil {
		return summary, err
	}

	slog.Info("archiving transcripts", "run_id", summary.RunId, "users", len(users), "workers", a.workers)

	archivedAt := chat.Timestamp(time.Now())
	worker := func(ctx context.Context, user database.User) (outcome, error) {
		return a.archiveUser(ctx, summary.RunId, user, archivedAt)
	}

	var errs []error
	done := 0
	for result := range utils.RunInPool(ctx, users, a.workers, worker) {
		done++
		if a.progress != nil {
			a.progress(done, len(users))
		}

		if result.Error != nil {
			slog.Error("failed to archive transcript", "run_id", summary.RunId, "user_id", result.Input.ID, "error", result.Error)
			errs = append(errs, fmt.Errorf("user %d: %w", result.Input.ID, result.Error))
			continue
		}

		switch result.Result {
		case written:
			summary.Written++
		case skipped:
			summary.Skipped++
		}
	}

	if len(errs) > 0 {
		return summary, fmt.Errorf("archive run %s failed for %d users: %w", summary.RunId, len(errs), errors.Join(errs...))
	}

	slog.Info("archive complete", "run_id", summary.RunId, "written", summary.Written, "skipped", summary.Skipped)

	return summary, nil
}

func (a *Archiver) archiveUser(ctx context.Context, runId uuid.UUID, user database.User, archivedAt time.Time) (outcome, error) {
	thread, err := chat.GetThreadForUser(ctx, a.db, user.ID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return skipped, nil
		}
		return 0, err
	}

	messages, err := chat.GetThreadMessages(ctx, a.db, thread.ID)
	if err != nil {
		return 0, err
	}

	transcript := Transcript{
		User:       api.User{Id: user.ID, Name: user.Name},
		ThreadId:   thread.ID,
		Messages:   make([]api.Message, 0, len(messages)),
		ArchivedAt: archivedAt,
	}
	for _, m := range messages {
		transcript.Messages = append(transcript.Messages, api.Message{
			Id:         m.ID,
			Content:    m.Content,
			IsFromUser: m.IsFromUser,
			CreatedAt:  m.CreatedAt.UTC(),
		})
	}

	data, err := json.Marshal(transcript)
	if err != nil {
		return 0, fmt.Errorf("error serializing transcript: %w", err)
	}

	if err := a.store.PutObject(ctx, TranscriptKey(runId, user.ID), bytes.NewReader(data)); err != nil {
		return 0, err
	}

	return written, nil
}

func ReadTranscript(ctx context.Context, store storage.ObjectStore, key string) (Transcript, error) {
	reader, err := store.GetObject(ctx, key)
	if err != nil {
		return Transcript{}, err
	}
	defer reader.Close()

	var transcript Transcript
	if err := json.NewDecoder(reader).Decode(&transcript); err != nil {
		return Transcript{}, fmt.Errorf("error decoding transcript %s: %w", key, err)
	}
	return transcript, nil
}
