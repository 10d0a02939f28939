package quiz

import (
	"context"
	"time"
)

type QuestionListOpts struct {
	QType      QType
	Difficulty Difficulty
	CategoryID int64
	Limit      int
	Offset     int
}

type AttemptListOpts struct {
	PlayerUUID string
	Status     AttemptStatus
	Limit      int
	Offset     int
}

// ScoreFunc turns a loaded open attempt into its scored form. It must be pure.
type ScoreFunc func(open Attempt) Attempt

// Store is the persistence collaborator. ScoreAttempt is the only write
// path for the open→scored transition and must be atomic: of two
// concurrent calls for one attempt exactly one succeeds, the other gets
// ErrAlreadySubmitted and writes nothing.
type Store interface {
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error) // replaces the choice set
	GetQuestion(ctx context.Context, id int64) (Question, error)
	ListQuestions(ctx context.Context, opts QuestionListOpts) ([]Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	QuestionIDs(ctx context.Context) ([]int64, error)

	CreateCategory(ctx context.Context, name string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)

	CreateAttempt(ctx context.Context, playerUUID string, createdAt time.Time, snapshots []AttemptQuestion) (Attempt, error)
	GetAttempt(ctx context.Context, id int64) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	ScoreAttempt(ctx context.Context, id int64, score ScoreFunc) (Attempt, error)
}
