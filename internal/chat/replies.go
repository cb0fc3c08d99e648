package chat

import (
	"context"
	"errors"
	"math/rand/v2"
)

// Replier produces the bot's answer to a user message.
type Replier interface {
	Reply(ctx context.Context, content string) (string, error)
}

type ReplyFunc func(ctx context.Context, content string) (string, error)

func (f ReplyFunc) Reply(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

var DefaultReplies = []string{
	"That's interesting! Tell me more about that.",
	"I understand what you're saying. How can I help you further?",
	"Thanks for sharing that with me. Is there anything specific you'd like to know?",
	"I'm here to help! What would you like to discuss?",
	"That's a great point. Let me think about that for a moment...",
	"I appreciate you reaching out. How can I assist you today?",
	"That sounds fascinating! I'd love to hear more details.",
	"I'm processing what you've said. What's your next question?",
	"Thank you for the information. How can I be of service?",
	"I'm listening and ready to help. What's on your mind?",
}

// RandomReplier picks uniformly from a fixed catalog and ignores the message.
type RandomReplier struct {
	replies []string
}

func NewRandomReplier(replies []string) (*RandomReplier, error) {
	if len(replies) == 0 {
		return nil, errors.New("reply catalog must not be empty")
	}
	for _, reply := range replies {
		if reply == "" {
			return nil, errors.New("reply catalog must not contain empty replies")
		}
	}
	return &RandomReplier{replies: append([]string(nil), replies...)}, nil
}

func (r *RandomReplier) Reply(ctx context.Context, content string) (string, error) {
	return r.replies[rand.IntN(len(r.replies))], nil
}

// StaticReplier always answers with the same text.
type StaticReplier string

func (r StaticReplier) Reply(ctx context.Context, content string) (string, error) {
	return string(r), nil
}
