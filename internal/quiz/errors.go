package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrQuestionNotFound      = errors.New("question not found")
	ErrQuestionInUse         = errors.New("question is referenced by attempts")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryExists        = errors.New("category already exists")
	ErrAttemptNotFound       = errors.New("attempt not found")
	ErrAlreadySubmitted      = errors.New("attempt already submitted")
	ErrInsufficientQuestions = errors.New("not enough questions in bank")
	ErrInvalidPlayer         = errors.New("invalid player_uuid")
)

// ValidationError rejects a malformed question payload.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
