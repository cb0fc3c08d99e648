package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"chat-backend/internal/chat"
	"chat-backend/pkg/api"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

// ParseRequest decodes the json body of r. A body that is not valid json for T is
// a validation failure.
func ParseRequest[T any](r *http.Request) (T, error) {
	var data T
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		slog.Error("error parsing request body", "error", err)
		return data, CodedError(http.StatusUnprocessableEntity, fmt.Errorf("%w: unable to parse request body", chat.ErrValidation))
	}
	return data, nil
}

// statusFor maps domain errors onto http status codes. Coded errors keep their
// own code.
func statusFor(err error) int {
	var cerr *codedError
	switch {
	case errors.As(err, &cerr):
		return cerr.code
	case errors.Is(err, chat.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chat.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			code := statusFor(err)
			msg := err.Error()
			if code == http.StatusInternalServerError {
				slog.Error("internal server error received in endpoint", "path", r.URL.Path, "error", err)
				msg = "internal server error"
			}
			WriteJsonError(w, code, msg)
			return
		}

		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, res)
	}
}

func writeJson(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error serializing response body", "error", err)
	}
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
		WriteJsonError(w, http.StatusInternalServerError, fmt.Sprintf("error serializing response body: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("error writing response body", "error", err)
	}
}

func WriteJsonError(w http.ResponseWriter, code int, msg string) {
	writeJson(w, code, api.ErrorResponse{Error: msg})
}
