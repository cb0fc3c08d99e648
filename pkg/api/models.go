package api

import (
	"time"
)

type User struct {
	Id   uint   `json:"id"`
	Name string `json:"name"`
}

// UserWithKey is what the public user listing returns. It exposes credentials.
type UserWithKey struct {
	Id     uint   `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

type Message struct {
	Id         uint      `json:"id"`
	Content    string    `json:"content"`
	IsFromUser bool      `json:"is_from_user"`
	CreatedAt  time.Time `json:"created_at"`
}

type Thread struct {
	Id       uint      `json:"id"`
	Messages []Message `json:"messages"`
}

// PostMessageRequest uses a pointer so that a missing content field can be told
// apart from an empty one.
type PostMessageRequest struct {
	Content *string `json:"content"`
}

type PostMessageResponse struct {
	UserMessage Message `json:"user_message"`
	BotMessage  Message `json:"bot_message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
