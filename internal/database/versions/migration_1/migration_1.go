package migration_1

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

const (
	userIndex          = "idx_threads_user_id"
	legacyUserIndex    = "idx_thread_user"
	threadCreatedIndex = "idx_messages_thread_created"
)

type Thread struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"uniqueIndex:idx_threads_user_id;not null"`
}

func (Thread) TableName() string {
	return "threads"
}

type Message struct {
	ID        uint      `gorm:"primaryKey"`
	ThreadID  uint      `gorm:"index:idx_messages_thread_created,priority:1;not null"`
	CreatedAt time.Time `gorm:"index:idx_messages_thread_created,priority:2;not null"`
}

func (Message) TableName() string {
	return "messages"
}

type duplicateThreads struct {
	UserID uint
	KeepID uint
}

// Migration folds duplicate threads into the oldest one for each user and then
// adds the unique index on threads.user_id.
func Migration(db *gorm.DB) error {
	var duplicates []duplicateThreads
	if err := db.Table("threads").
		Select("user_id, MIN(id) AS keep_id").
		Group("user_id").
		Having("COUNT(*) > 1").
		Scan(&duplicates).Error; err != nil {
		return fmt.Errorf("error finding duplicate threads: %w", err)
	}

	for _, dup := range duplicates {
		slog.Info("merging duplicate threads", "user_id", dup.UserID, "keep_thread_id", dup.KeepID)

		if err := db.Exec(
			"UPDATE messages SET thread_id = ? WHERE thread_id IN (SELECT id FROM threads WHERE user_id = ? AND id <> ?)",
			dup.KeepID, dup.UserID, dup.KeepID,
		).Error; err != nil {
			return fmt.Errorf("error moving messages for user %d: %w", dup.UserID, err)
		}

		if err := db.Exec("DELETE FROM threads WHERE user_id = ? AND id <> ?", dup.UserID, dup.KeepID).Error; err != nil {
			return fmt.Errorf("error deleting duplicate threads for user %d: %w", dup.UserID, err)
		}
	}

	if db.Migrator().HasIndex(&Thread{}, legacyUserIndex) {
		if err := db.Migrator().DropIndex(&Thread{}, legacyUserIndex); err != nil {
			return fmt.Errorf("error dropping index %s: %w", legacyUserIndex, err)
		}
	}

	if err := db.Migrator().CreateIndex(&Thread{}, userIndex); err != nil {
		return fmt.Errorf("error creating unique index on threads.user_id: %w", err)
	}

	if !db.Migrator().HasIndex(&Message{}, threadCreatedIndex) {
		if err := db.Migrator().CreateIndex(&Message{}, threadCreatedIndex); err != nil {
			return fmt.Errorf("error creating index %s: %w", threadCreatedIndex, err)
		}
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if db.Migrator().HasIndex(&Message{}, threadCreatedIndex) {
		if err := db.Migrator().DropIndex(&Message{}, threadCreatedIndex); err != nil {
			return fmt.Errorf("error dropping index %s: %w", threadCreatedIndex, err)
		}
	}

	if err := db.Migrator().DropIndex(&Thread{}, userIndex); err != nil {
		return fmt.Errorf("error dropping unique index on threads.user_id: %w", err)
	}

	if err := db.Exec("CREATE INDEX " + legacyUserIndex + " ON threads (user_id)").Error; err != nil {
		return fmt.Errorf("error restoring index %s: %w", legacyUserIndex, err)
	}

	return nil
}
