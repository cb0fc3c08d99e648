// Package auth resolves the X-API-Key header of each request to a user.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/pkg/api"
)

const APIKeyHeader = "X-API-Key"

type contextKey int

const userKey contextKey = iota

// UserResolver looks up the user owning an api key. chat.Service implements it.
type UserResolver interface {
	GetCurrentUser(ctx context.Context, apiKey string) (database.User, error)
}

// UserFromContext returns the user placed in ctx by Middleware.
func UserFromContext(ctx context.Context) (database.User, bool) {
	user, ok := ctx.Value(userKey).(database.User)
	return user, ok
}

func WithUser(ctx context.Context, user database.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// APIKeyFromRequest reports whether the header was sent at all; a header sent
// with an empty value is present.
func APIKeyFromRequest(r *http.Request) (string, bool) {
	values, ok := r.Header[http.CanonicalHeaderKey(APIKeyHeader)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Error: msg}); err != nil {
		slog.Error("error writing auth error response", "error", err)
	}
}

// Middleware rejects requests without a valid api key. The lookup runs on every
// request; nothing is cached.
func Middleware(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, ok := APIKeyFromRequest(r)
			if !ok {
				writeError(w, http.StatusUnprocessableEntity, "missing "+APIKeyHeader+" header")
				return
			}

			user, err := users.GetCurrentUser(r.Context(), apiKey)
			if err != nil {
				switch {
				case errors.Is(err, chat.ErrUnauthorized):
					writeError(w, http.StatusUnauthorized, "invalid API key")
				case errors.Is(err, chat.ErrNotFound):
					writeError(w, http.StatusNotFound, "user not found")
				default:
					slog.Error("error authenticating request", "error", err)
					writeError(w, http.StatusInternalServerError, "unable to authenticate request")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
