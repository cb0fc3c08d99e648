package database

import (
	"time"
)

type User struct {
	ID     uint   `gorm:"primaryKey"`
	Name   string `gorm:"size:30;not null"`
	APIKey string `gorm:"column:api_key;uniqueIndex;not null"`

	Threads []Thread `gorm:"foreignKey:UserID"`
}

// A user owns at most one thread. The unique index on UserID is what keeps two
// concurrent first requests from provisioning a second one.
type Thread struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex:idx_threads_user_id;not null"`
	User      *User     `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"not null"`

	Messages []Message `gorm:"foreignKey:ThreadID"`
}

type Message struct {
	ID         uint      `gorm:"primaryKey"`
	ThreadID   uint      `gorm:"index:idx_messages_thread_created,priority:1;not null"`
	Thread     *Thread   `gorm:"foreignKey:ThreadID"`
	Content    string    `gorm:"type:text;not null"`
	IsFromUser bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index:idx_messages_thread_created,priority:2;not null"`
}
