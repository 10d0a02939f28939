package quiz

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryStore struct {
	mu         sync.RWMutex
	questions  map[int64]Question
	categories map[int64]Category
	attempts   map[int64]Attempt

	questionSeq, choiceSeq, categorySeq, attemptSeq, aqSeq int64
}

// NewInMemoryStore returns a Store backed by maps, for tests and offline demos.
func NewInMemoryStore() Store {
	return &memoryStore{
		questions:  map[int64]Question{},
		categories: map[int64]Category{},
		attempts:   map[int64]Attempt{},
	}
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkCategory(q.CategoryID); err != nil {
		return Question{}, err
	}
	m.questionSeq++
	q = q.clone()
	q.ID = m.questionSeq
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	m.assignChoiceIDs(&q)
	m.questions[q.ID] = q
	return q.clone(), nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.questions[q.ID]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	if err := m.checkCategory(q.CategoryID); err != nil {
		return Question{}, err
	}
	q = q.clone()
	q.CreatedAt = old.CreatedAt
	m.assignChoiceIDs(&q)
	m.questions[q.ID] = q
	return q.clone(), nil
}

// assignChoiceIDs always issues fresh ids; choice ids never survive an edit.
func (m *memoryStore) assignChoiceIDs(q *Question) {
	for i := range q.Choices {
		m.choiceSeq++
		q.Choices[i].ID = m.choiceSeq
	}
}

func (m *memoryStore) checkCategory(id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := m.categories[*id]; !ok {
		return ErrCategoryNotFound
	}
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id int64) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q.clone(), nil
}

func (m *memoryStore) ListQuestions(_ context.Context, opts QuestionListOpts) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(m.questions))
	for _, q := range m.questions {
		if opts.QType != "" && q.QType != opts.QType {
			continue
		}
		if opts.Difficulty != "" && q.Difficulty != opts.Difficulty {
			continue
		}
		if opts.CategoryID != 0 && (q.CategoryID == nil || *q.CategoryID != opts.CategoryID) {
			continue
		}
		out = append(out, q.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return ErrQuestionNotFound
	}
	for _, a := range m.attempts {
		for _, aq := range a.AttemptQuestions {
			if aq.QuestionID == id {
				return ErrQuestionInUse
			}
		}
	}
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) QuestionIDs(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.questions))
	for id := range m.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryStore) CreateCategory(_ context.Context, name string) (Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return Category{}, ErrCategoryExists
		}
	}
	m.categorySeq++
	c := Category{ID: m.categorySeq, Name: name}
	m.categories[c.ID] = c
	return c, nil
}

func (m *memoryStore) ListCategories(_ context.Context) ([]Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, playerUUID string, createdAt time.Time, snapshots []AttemptQuestion) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attemptSeq++
	a := Attempt{
		ID:               m.attemptSeq,
		PlayerUUID:       playerUUID,
		CreatedAt:        createdAt.UTC(),
		Status:           StatusOpen,
		Total:            len(snapshots),
		AttemptQuestions: make([]AttemptQuestion, 0, len(snapshots)),
	}
	for _, s := range snapshots {
		m.aqSeq++
		aq := s.clone()
		aq.ID = m.aqSeq
		a.AttemptQuestions = append(a.AttemptQuestions, aq)
	}
	m.attempts[a.ID] = a
	return a.Clone(), nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id int64) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a.Clone(), nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0)
	for _, a := range m.attempts {
		if opts.PlayerUUID != "" && a.PlayerUUID != opts.PlayerUUID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) ScoreAttempt(_ context.Context, id int64, score ScoreFunc) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Status != StatusOpen {
		return Attempt{}, ErrAlreadySubmitted
	}
	scored := score(a.Clone())
	m.attempts[id] = scored.Clone()
	return scored, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
