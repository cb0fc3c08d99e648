package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-backend/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Timestamp normalizes t to the precision every supported store round-trips.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func ListUsers(ctx context.Context, db *gorm.DB) ([]database.User, error) {
	var users []database.User
	if err := db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&database.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return count, nil
}

// GetUserByAPIKey resolves the user owning apiKey. An unknown key, including the
// empty string, is ErrUnauthorized unless there are no users at all, which is
// reported as ErrNotFound.
func GetUserByAPIKey(ctx context.Context, db *gorm.DB, apiKey string) (database.User, error) {
	var user database.User
	if apiKey != "" {
		err := db.WithContext(ctx).Where("api_key = ?", apiKey).Take(&user).Error
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return database.User{}, fmt.Errorf("error looking up api key: %w", err)
		}
	}

	count, err := CountUsers(ctx, db)
	if err != nil {
		return database.User{}, err
	}
	if count == 0 {
		return database.User{}, fmt.Errorf("%w: no users exist", ErrNotFound)
	}
	return database.User{}, fmt.Errorf("%w: invalid api key", ErrUnauthorized)
}

func GetThreadForUser(ctx context.Context, db *gorm.DB, userID uint) (database.Thread, error) {
	var thread database.Thread
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&thread).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.Thread{}, fmt.Errorf("%w: user %d has no thread", ErrNotFound, userID)
		}
		return database.Thread{}, fmt.Errorf("error getting thread for user %d: %w", userID, err)
	}
	return thread, nil
}

// GetOrCreateThread returns the user's thread, creating it on first access. If a
// concurrent caller inserts first, the unique index turns our insert into a
// no-op and the winner's row is returned.
func GetOrCreateThread(ctx context.Context, db *gorm.DB, userID uint, now time.Time) (database.Thread, error) {
	thread, err := GetThreadForUser(ctx, db, userID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return database.Thread{}, err
	}

	thread = database.Thread{UserID: userID, CreatedAt: Timestamp(now)}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&thread)
	if result.Error != nil {
		return database.Thread{}, fmt.Errorf("error creating thread for user %d: %w", userID, result.Error)
	}

	if result.RowsAffected == 0 {
		return GetThreadForUser(ctx, db, userID)
	}

	return thread, nil
}

func GetThreadMessages(ctx context.Context, db *gorm.DB, threadID uint) ([]database.Message, error) {
	var messages []database.Message
	err := db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("error getting messages for thread %d: %w", threadID, err)
	}
	return messages, nil
}

func CreateMessage(ctx context.Context, db *gorm.DB, message *database.Message) error {
	if err := db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("error saving message: %w", err)
	}
	return nil
}
