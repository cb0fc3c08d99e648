package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, users ...database.User) http.Handler {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)

	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	service := chat.NewService(db, chat.StaticReplier("ok"), nil)

	return auth.Middleware(service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			http.Error(w, "no user in context", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": user.ID, "name": user.Name})
	}))
}

func request(handler http.Handler, apiKey *string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if apiKey != nil {
		req.Header.Set(auth.APIKeyHeader, *apiKey)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func ptr(s string) *string {
	return &s
}

// decodeError checks the body has exactly the shape the api handlers use.
func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body api.ErrorResponse
	decoder := json.NewDecoder(w.Body)
	decoder.DisallowUnknownFields()
	require.NoError(t, decoder.Decode(&body))
	return body.Error
}

func TestMiddleware(t *testing.T) {
	handler := setup(t,
		database.User{Name: "Alice", APIKey: "alice_key_123"},
		database.User{Name: "Bob", APIKey: "bob_key_456"},
	)

	t.Run("ValidKey", func(t *testing.T) {
		w := request(handler, ptr("bob_key_456"))
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Bob", body["name"])
	})

	t.Run("MissingHeader", func(t *testing.T) {
		w := request(handler, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeError(t, w), auth.APIKeyHeader)
	})

	t.Run("EmptyKey", func(t *testing.T) {
		w := request(handler, ptr(""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, decodeError(t, w))
	})

	t.Run("UnknownKey", func(t *testing.T) {
		w := request(handler, ptr("mallory_key"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMiddlewareNoUsers(t *testing.T) {
	handler := setup(t)

	w := request(handler, ptr("alice_key_123"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKeyFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := auth.APIKeyFromRequest(req)
	assert.False(t, ok)

	req.Header.Set("x-api-key", "abc")
	key, ok := auth.APIKeyFromRequest(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", key)
}
