package database_test

import (
	"path/filepath"
	"testing"
	"time"

	"chat-backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseInMemory(t *testing.T) {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)

	assert.True(t, database.IsSQLite(db))
	assert.True(t, db.Migrator().HasTable(&database.User{}))
	assert.True(t, db.Migrator().HasTable(&database.Thread{}))
	assert.True(t, db.Migrator().HasTable(&database.Message{}))
	assert.True(t, db.Migrator().HasIndex(&database.Thread{}, "idx_threads_user_id"))
	assert.True(t, db.Migrator().HasIndex(&database.Message{}, "idx_messages_thread_created"))
}

func TestNewDatabaseFileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat.db")

	db, err := database.NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Create(&database.User{Name: "Alice", APIKey: "alice_key_123"}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	db, err = database.NewDatabase("sqlite://" + path)
	require.NoError(t, err)

	var users []database.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
}

func TestSchemaConstraints(t *testing.T) {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)

	user := database.User{Name: "Alice", APIKey: "alice_key_123"}
	require.NoError(t, db.Create(&user).Error)

	t.Run("ApiKeyUnique", func(t *testing.T) {
		err := db.Create(&database.User{Name: "Mallory", APIKey: "alice_key_123"}).Error
		assert.Error(t, err)
	})

	t.Run("OneThreadPerUser", func(t *testing.T) {
		require.NoError(t, db.Create(&database.Thread{UserID: user.ID, CreatedAt: time.Now().UTC()}).Error)
		err := db.Create(&database.Thread{UserID: user.ID, CreatedAt: time.Now().UTC()}).Error
		assert.Error(t, err)
	})

	t.Run("ThreadForeignKey", func(t *testing.T) {
		err := db.Create(&database.Thread{UserID: 9999, CreatedAt: time.Now().UTC()}).Error
		assert.Error(t, err)
	})

	t.Run("MessageForeignKey", func(t *testing.T) {
		err := db.Create(&database.Message{ThreadID: 9999, Content: "orphan", IsFromUser: true, CreatedAt: time.Now().UTC()}).Error
		assert.Error(t, err)
	})

	t.Run("BotMessageKeepsFlag", func(t *testing.T) {
		var thread database.Thread
		require.NoError(t, db.Where("user_id = ?", user.ID).First(&thread).Error)

		msg := database.Message{ThreadID: thread.ID, Content: "", IsFromUser: false, CreatedAt: time.Now().UTC()}
		require.NoError(t, db.Create(&msg).Error)

		var stored database.Message
		require.NoError(t, db.First(&stored, msg.ID).Error)
		assert.False(t, stored.IsFromUser)
		assert.Equal(t, "", stored.Content)
	})
}
