package quiz

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/quizd/internal/grading"
	"github.com/mind-engage/quizd/internal/storage"
)

// Observer receives attempt lifecycle notifications, e.g. for metrics.
type Observer interface {
	AttemptStarted()
	AttemptScored(score, total int, replayed bool)
}

type nopObserver struct{}

func (nopObserver) AttemptStarted() {}
func (nopObserver) AttemptScored(_, _ int, _ bool) {}

type Service struct {
	store   Store
	grader  grading.Grader
	sampler Sampler
	blobs   storage.BlobStore
	log     *zap.Logger
	obs     Observer
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithSampler(s Sampler) ServiceOption { return func(svc *Service) { svc.sampler = s } }
func WithBlobStore(b storage.BlobStore) ServiceOption { return func(svc *Service) { svc.blobs = b } }
func WithLogger(l *zap.Logger) ServiceOption { return func(svc *Service) { svc.log = l } }
func WithObserver(o Observer) ServiceOption { return func(svc *Service) { svc.obs = o } }
func WithClock(now func() time.Time) ServiceOption { return func(svc *Service) { svc.now = now } }

func NewService(store Store, grader grading.Grader, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		grader: grader,
		log:    zap.NewNop(),
		obs:    nopObserver{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.grader == nil {
		s.grader = grading.NewDefaultGrader()
	}
	if s.sampler == nil {
		s.sampler = NewRandomSampler(0)
	}
	return s
}

// ---------- questions ----------

func (s *Service) CreateQuestion(ctx context.Context, in QuestionInput) (Question, error) {
	q, err := Validate(in)
	if err != nil {
		return Question{}, err
	}
	q.CreatedAt = s.now()
	out, err := s.store.CreateQuestion(ctx, q)
	return out, categoryErr(err)
}

// UpdateQuestion replaces every field of question id, including its whole
// choice set. Existing attempts keep their snapshots.
func (s *Service) UpdateQuestion(ctx context.Context, id int64, in QuestionInput) (Question, error) {
	q, err := Validate(in)
	if err != nil {
		return Question{}, err
	}
	q.ID = id
	out, err := s.store.UpdateQuestion(ctx, q)
	return out, categoryErr(err)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (Question, error) {
	return s.store.GetQuestion(ctx, id)
}

func (s *Service) ListQuestions(ctx context.Context, opts QuestionListOpts) ([]Question, error) {
	return s.store.ListQuestions(ctx, opts)
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	return s.store.DeleteQuestion(ctx, id)
}

func categoryErr(err error) error {
	if errors.Is(err, ErrCategoryNotFound) {
		return invalid("category", "unknown category")
	}
	return err
}

// ---------- categories ----------

func (s *Service) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, invalid("name", "is required")
	}
	if len(name) > 100 {
		return Category{}, invalid("name", "must be at most 100 characters")
	}
	return s.store.CreateCategory(ctx, name)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

// ---------- attempts ----------

// CreateAttempt samples AttemptSize questions and freezes them into a new
// open attempt for playerUUID.
func (s *Service) CreateAttempt(ctx context.Context, playerUUID string) (Attempt, error) {
	pid, err := uuid.Parse(strings.TrimSpace(playerUUID))
	if err != nil {
		return Attempt{}, ErrInvalidPlayer
	}
	pool, err := s.store.QuestionIDs(ctx)
	if err != nil {
		return Attempt{}, err
	}
	if len(pool) < AttemptSize {
		return Attempt{}, ErrInsufficientQuestions
	}

	picked := s.sampler.Sample(pool, AttemptSize)
	snaps := make([]AttemptQuestion, 0, len(picked))
	for _, id := range picked {
		q, err := s.store.GetQuestion(ctx, id)
		if err != nil {
			return Attempt{}, fmt.Errorf("snapshot question %d: %w", id, err)
		}
		snaps = append(snaps, Snapshot(q))
	}

	a, err := s.store.CreateAttempt(ctx, pid.String(), s.now(), snaps)
	if err != nil {
		return Attempt{}, err
	}
	s.obs.AttemptStarted()
	s.log.Info("attempt created",
		zap.Int64("attempt_id", a.ID),
		zap.String("player_uuid", a.PlayerUUID),
		zap.Int("total", a.Total))
	return a, nil
}

func (s *Service) GetAttempt(ctx context.Context, id int64) (Attempt, error) {
	return s.store.GetAttempt(ctx, id)
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	if opts.PlayerUUID != "" {
		pid, err := uuid.Parse(strings.TrimSpace(opts.PlayerUUID))
		if err != nil {
			return nil, ErrInvalidPlayer
		}
		opts.PlayerUUID = pid.String()
	}
	return s.store.ListAttempts(ctx, opts)
}

// SubmitResult is the outcome of Submit. Replayed is set when the attempt
// had already been scored and was returned unchanged.
type SubmitResult struct {
	Attempt  Attempt
	Replayed bool
}

// Submit scores attempt id exactly once. A repeated submit does not
// re-score; it returns the stored scored attempt with Replayed set.
func (s *Service) Submit(ctx context.Context, id int64, sub Submission) (SubmitResult, error) {
	a, err := s.store.GetAttempt(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	if a.Status != StatusOpen {
		return s.replay(a), nil
	}

	imageKey, err := s.storeImage(ctx, a, sub.Image)
	if err != nil {
		return SubmitResult{}, err
	}

	now := s.now()
	scored, err := s.store.ScoreAttempt(ctx, id, func(open Attempt) Attempt {
		return ScoreAttempt(s.grader, open, sub.Answers, imageKey, now)
	})
	if errors.Is(err, ErrAlreadySubmitted) {
		// lost a race with a concurrent submit
		a, err := s.store.GetAttempt(ctx, id)
		if err != nil {
			return SubmitResult{}, err
		}
		return s.replay(a), nil
	}
	if err != nil {
		return SubmitResult{}, err
	}

	s.obs.AttemptScored(*scored.Score, scored.Total, false)
	s.log.Info("attempt scored",
		zap.Int64("attempt_id", scored.ID),
		zap.String("player_uuid", scored.PlayerUUID),
		zap.Int("score", *scored.Score),
		zap.Int("total", scored.Total))
	return SubmitResult{Attempt: scored}, nil
}

func (s *Service) replay(a Attempt) SubmitResult {
	score := 0
	if a.Score != nil {
		score = *a.Score
	}
	s.obs.AttemptScored(score, a.Total, true)
	s.log.Debug("submit replayed", zap.Int64("attempt_id", a.ID))
	return SubmitResult{Attempt: a, Replayed: true}
}

// storeImage persists the upload when the attempt has an image question.
// Uploads for attempts without one are discarded.
func (s *Service) storeImage(ctx context.Context, a Attempt, up *Upload) (string, error) {
	if up == nil || up.Body == nil {
		return "", nil
	}
	wanted := false
	for _, aq := range a.AttemptQuestions {
		if aq.QType == QTypeImage {
			wanted = true
			break
		}
	}
	if !wanted {
		return "", nil
	}
	if s.blobs == nil {
		s.log.Warn("image upload dropped: no blob store configured", zap.Int64("attempt_id", a.ID))
		return "", nil
	}
	key := fmt.Sprintf("attempts/%d/%s%s", a.ID, uuid.NewString(), imageExt(up.Filename))
	k, err := s.blobs.Put(ctx, key, up.Body, up.Size, up.ContentType)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return k, nil
}

func imageExt(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\ `) {
		return ""
	}
	return ext
}
