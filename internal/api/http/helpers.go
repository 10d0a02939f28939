package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/quizd/internal/quiz"
	"github.com/mind-engage/quizd/internal/storage"
)

type ctxKey int

const loggerKey ctxKey = iota

func withLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// writeError maps domain errors onto status codes. Anything unknown is a
// 500 and gets logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *quiz.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Field: ve.Field, Reason: ve.Reason})
	case errors.Is(err, quiz.ErrInvalidPlayer), errors.Is(err, storage.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, quiz.ErrQuestionNotFound),
		errors.Is(err, quiz.ErrAttemptNotFound),
		errors.Is(err, quiz.ErrCategoryNotFound),
		errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, quiz.ErrQuestionInUse),
		errors.Is(err, quiz.ErrCategoryExists),
		errors.Is(err, quiz.ErrInsufficientQuestions),
		errors.Is(err, quiz.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		loggerFrom(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// pathID reads a positive int64 URL param.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	return id, err == nil && id > 0
}

func clampLimit(n, def, hi int) int {
	if n <= 0 {
		return def
	}
	if n > hi {
		return hi
	}
	return n
}
