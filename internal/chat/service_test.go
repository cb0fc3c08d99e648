package chat

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"chat-backend/internal/database"
	"chat-backend/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, apiKey string) database.User {
	user := database.User{Name: name, APIKey: apiKey}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestGetUserByAPIKey(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := GetUserByAPIKey(ctx, db, "alice_key_123")
	assert.ErrorIs(t, err, ErrNotFound, "an empty user table is a bootstrap problem, not a bad key")

	alice := createUser(t, db, "Alice", "alice_key_123")
	createUser(t, db, "Bob", "bob_key_456")

	user, err := GetUserByAPIKey(ctx, db, "alice_key_123")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	assert.Equal(t, "Alice", user.Name)

	_, err = GetUserByAPIKey(ctx, db, "nope")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = GetUserByAPIKey(ctx, db, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListUsers(t *testing.T) {
	db := setupDB(t)

	createUser(t, db, "Alice", "alice_key_123")
	createUser(t, db, "Bob", "bob_key_456")

	users, err := ListUsers(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)
	assert.Equal(t, "bob_key_456", users[1].APIKey)
}

func TestGetOrCreateThread(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	user := createUser(t, db, "Alice", "alice_key_123")

	first, err := GetOrCreateThread(ctx, db, user.ID, time.Now())
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := GetOrCreateThread(ctx, db, user.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	assert.Equal(t, int64(1), countRows(t, db, &database.Thread{}))

	_, err = GetOrCreateThread(ctx, db, 9999, time.Now())
	assert.Error(t, err, "threads must belong to an existing user")
}

func TestGetOrCreateThreadConcurrent(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, "Alice", "alice_key_123")

	const callers = 16
	ids := make([]uint, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			thread, err := GetOrCreateThread(context.Background(), db, user.ID, time.Now())
			ids[i] = thread.ID
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int64(1), countRows(t, db, &database.Thread{}))
}

func TestPostMessage(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	user := createUser(t, db, "Alice", "alice_key_123")

	queue := messaging.NewInMemoryQueue()
	defer queue.Close()

	service := NewService(db, StaticReplier("canned"), queue)

	userMsg, botMsg, err := service.PostMessage(ctx, user, "hi")
	require.NoError(t, err)

	assert.Equal(t, "hi", userMsg.Content)
	assert.True(t, userMsg.IsFromUser)
	assert.Equal(t, "canned", botMsg.Content)
	assert.False(t, botMsg.IsFromUser)
	assert.Equal(t, userMsg.ThreadID, botMsg.ThreadID)
	assert.Greater(t, botMsg.ID, userMsg.ID)
	assert.False(t, botMsg.CreatedAt.Before(userMsg.CreatedAt))

	thread, err := service.GetThread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, userMsg.ThreadID, thread.ID)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, userMsg.ID, thread.Messages[0].ID)
	assert.True(t, userMsg.CreatedAt.Equal(thread.Messages[0].CreatedAt))
	assert.Equal(t, botMsg.ID, thread.Messages[1].ID)
	assert.True(t, botMsg.CreatedAt.Equal(thread.Messages[1].CreatedAt))

	select {
	case task := <-queue.Tasks():
		assert.Equal(t, messaging.MessageEventsQueue, task.Type())
		var payload messaging.MessagePostedPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, user.ID, payload.UserId)
		assert.Equal(t, thread.ID, payload.ThreadId)
		assert.Equal(t, userMsg.ID, payload.UserMessageId)
		assert.Equal(t, botMsg.ID, payload.BotMessageId)
	default:
		t.Fatal("expected a message posted event")
	}
}

func TestPostMessageEmptyContent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	user := createUser(t, db, "Alice", "alice_key_123")

	service := NewService(db, StaticReplier("canned"), nil)

	userMsg, _, err := service.PostMessage(ctx, user, "")
	require.NoError(t, err)

	var stored database.Message
	require.NoError(t, db.First(&stored, userMsg.ID).Error)
	assert.Equal(t, "", stored.Content)
	assert.True(t, stored.IsFromUser)
}

func TestPostMessageClockStepsBack(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, "Alice", "alice_key_123")

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return start.Add(-time.Duration(calls) * time.Second)
	}

	service := NewService(db, StaticReplier("canned"), nil, WithClock(clock))

	userMsg, botMsg, err := service.PostMessage(context.Background(), user, "hi")
	require.NoError(t, err)
	assert.True(t, botMsg.CreatedAt.Equal(userMsg.CreatedAt))

	thread, err := service.GetThread(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	assert.True(t, thread.Messages[0].IsFromUser, "ties are broken by insertion order")
}

func TestPostMessageRollsBack(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, "Alice", "alice_key_123")

	queue := messaging.NewInMemoryQueue()
	defer queue.Close()

	failing := ReplyFunc(func(ctx context.Context, content string) (string, error) {
		return "", errors.New("replier unavailable")
	})
	service := NewService(db, failing, queue)

	_, _, err := service.PostMessage(context.Background(), user, "hi")
	require.Error(t, err)

	assert.Equal(t, int64(0), countRows(t, db, &database.Message{}))
	assert.Equal(t, int64(0), countRows(t, db, &database.Thread{}), "the thread created in the failed transaction is rolled back too")

	empty := NewService(db, StaticReplier(""), queue)
	_, _, err = empty.PostMessage(context.Background(), user, "hi")
	require.Error(t, err)
	assert.Equal(t, int64(0), countRows(t, db, &database.Message{}))

	select {
	case <-queue.Tasks():
		t.Fatal("no event should be published for a rolled back post")
	default:
	}
}

func TestPostMessagePublishFailureKeepsMessages(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, "Alice", "alice_key_123")

	queue := messaging.NewInMemoryQueue()
	queue.Close()

	service := NewService(db, StaticReplier("canned"), queue)

	_, _, err := service.PostMessage(context.Background(), user, "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(2), countRows(t, db, &database.Message{}))
}

func TestThreadOrderingAcrossPosts(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	user := createUser(t, db, "Alice", "alice_key_123")

	replier, err := NewRandomReplier(DefaultReplies)
	require.NoError(t, err)
	service := NewService(db, replier, nil)

	const posts = 5
	for i := 0; i < posts; i++ {
		_, _, err := service.PostMessage(ctx, user, "message")
		require.NoError(t, err)
	}

	thread, err := service.GetThread(ctx, user)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2*posts)

	for i, msg := range thread.Messages {
		assert.Equal(t, i%2 == 0, msg.IsFromUser)
		if i > 0 {
			assert.False(t, msg.CreatedAt.Before(thread.Messages[i-1].CreatedAt))
		}
		if !msg.IsFromUser {
			assert.True(t, slices.Contains(DefaultReplies, msg.Content))
		}
	}
}

func TestRandomReplier(t *testing.T) {
	_, err := NewRandomReplier(nil)
	assert.Error(t, err)

	_, err = NewRandomReplier([]string{"ok", ""})
	assert.Error(t, err)

	replier, err := NewRandomReplier(DefaultReplies)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		reply, err := replier.Reply(context.Background(), "anything")
		require.NoError(t, err)
		assert.NotEmpty(t, reply)
		assert.Contains(t, DefaultReplies, reply)
	}
}
