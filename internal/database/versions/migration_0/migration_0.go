package migration_0

import (
	"time"

	"gorm.io/gorm"
)

// Schema as first deployed: one thread per user was expected but not enforced.

type User struct {
	ID     uint   `gorm:"primaryKey"`
	Name   string `gorm:"size:30;not null"`
	APIKey string `gorm:"column:api_key;uniqueIndex;not null"`
}

type Thread struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index:idx_thread_user;not null"`
	User      *User
	CreatedAt time.Time `gorm:"not null"`
}

type Message struct {
	ID         uint `gorm:"primaryKey"`
	ThreadID   uint `gorm:"index;not null"`
	Thread     *Thread
	Content    string    `gorm:"type:text;not null"`
	IsFromUser bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func Migration(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Thread{}, &Message{})
}
