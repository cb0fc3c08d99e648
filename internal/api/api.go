package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

type BackendService struct {
	chat *chat.Service
}

func NewBackendService(service *chat.Service) *BackendService {
	return &BackendService{chat: service}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Get("/users", RestHandler(s.ListUsers))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.chat))

		r.Get("/users/me", RestHandler(s.GetCurrentUser))
		r.Get("/threads/me", RestHandler(s.GetThread))
		r.Post("/messages", RestHandler(s.PostMessage))
	})
}

func requestUser(r *http.Request) (database.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return database.User{}, CodedErrorf(http.StatusInternalServerError, "request reached handler without an authenticated user")
	}
	return user, nil
}

func (s *BackendService) ListUsers(r *http.Request) (any, error) {
	users, err := s.chat.ListUsers(r.Context())
	if err != nil {
		return nil, err
	}
	return convertUsersWithKeys(users), nil
}

func (s *BackendService) GetCurrentUser(r *http.Request) (any, error) {
	user, err := requestUser(r)
	if err != nil {
		return nil, err
	}
	return convertUser(user), nil
}

func (s *BackendService) GetThread(r *http.Request) (any, error) {
	user, err := requestUser(r)
	if err != nil {
		return nil, err
	}

	thread, err := s.chat.GetThread(r.Context(), user)
	if err != nil {
		return nil, err
	}

	return convertThread(thread), nil
}

func (s *BackendService) PostMessage(r *http.Request) (any, error) {
	user, err := requestUser(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.PostMessageRequest](r)
	if err != nil {
		return nil, err
	}

	if req.Content == nil {
		return nil, fmt.Errorf("%w: content field is required", chat.ErrValidation)
	}

	userMsg, botMsg, err := s.chat.PostMessage(r.Context(), user, *req.Content)
	if err != nil {
		return nil, err
	}

	slog.Info("message posted", "user_id", user.ID, "thread_id", userMsg.ThreadID, "user_message_id", userMsg.ID)

	return api.PostMessageResponse{
		UserMessage: convertMessage(userMsg),
		BotMessage:  convertMessage(botMsg),
	}, nil
}
