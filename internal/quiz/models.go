package quiz

import (
	"encoding/json"
	"slices"
	"time"
)

// AttemptSize is the number of questions issued per attempt.
const AttemptSize = 5

type Choice struct {
	ID        int64  `json:"id,omitempty"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Question struct {
	ID            int64      `json:"id"`
	Prompt        string     `json:"prompt"`
	QType         QType      `json:"qtype"`
	Difficulty    Difficulty `json:"difficulty"`
	CategoryID    *int64     `json:"category"`
	TextAnswer    *string    `json:"text_answer"`
	NumericAnswer *float64   `json:"numeric_answer"`
	ImageRequired bool       `json:"image_required"`
	Choices       []Choice   `json:"choices"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AnswerKey is what an attempt freezes from a question besides its choices.
// It is never serialized.
type AnswerKey struct {
	TextAnswer    *string
	NumericAnswer *float64
	ImageRequired bool
}

// AttemptQuestion is the attempt-scoped snapshot of a question plus the
// player's response and, once scored, the verdict.
type AttemptQuestion struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	Prompt     string    `json:"prompt"`
	QType      QType     `json:"qtype"`
	Choices    []Choice  `json:"choices"`
	Key        AnswerKey `json:"-"`

	SelectedChoiceIDs []int64  `json:"selected_choice_ids"`
	TextResponse      *string  `json:"text_response"`
	NumericResponse   *float64 `json:"numeric_response"`
	Image             string   `json:"image"`

	IsCorrect        *bool   `json:"is_correct"`
	CorrectChoiceIDs []int64 `json:"correct_choice_ids"`
	NeedsReview      bool    `json:"needs_review"`
}

// Scored reports whether a verdict has been written.
func (aq AttemptQuestion) Scored() bool { return aq.IsCorrect != nil }

type snapshotChoice struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// MarshalJSON hides choice correctness until the question is scored.
func (aq AttemptQuestion) MarshalJSON() ([]byte, error) {
	type plain AttemptQuestion
	out := struct {
		plain
		Choices           []snapshotChoice `json:"choices"`
		SelectedChoiceIDs []int64          `json:"selected_choice_ids"`
		Image             *string          `json:"image"`
	}{plain: plain(aq)}

	out.Choices = make([]snapshotChoice, 0, len(aq.Choices))
	for _, c := range aq.Choices {
		sc := snapshotChoice{ID: c.ID, Text: c.Text}
		if aq.Scored() {
			ok := c.IsCorrect
			sc.IsCorrect = &ok
		}
		out.Choices = append(out.Choices, sc)
	}
	out.SelectedChoiceIDs = aq.SelectedChoiceIDs
	if out.SelectedChoiceIDs == nil {
		out.SelectedChoiceIDs = []int64{}
	}
	if aq.Image != "" {
		img := aq.Image
		out.Image = &img
	}
	return json.Marshal(out)
}

type Attempt struct {
	ID               int64             `json:"id"`
	PlayerUUID       string            `json:"player_uuid"`
	CreatedAt        time.Time         `json:"created_at"`
	Status           AttemptStatus     `json:"status"`
	SubmittedAt      *time.Time        `json:"submitted_at,omitempty"`
	Score            *int              `json:"score"` // nil while open
	Total            int               `json:"total"`
	AttemptQuestions []AttemptQuestion `json:"attempt_questions"`
}

// Snapshot freezes q for use inside an attempt. Later edits to q do not
// reach the snapshot.
func Snapshot(q Question) AttemptQuestion {
	aq := AttemptQuestion{
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		QType:      q.QType,
		Key: AnswerKey{
			TextAnswer:    cloneStr(q.TextAnswer),
			NumericAnswer: cloneF64(q.NumericAnswer),
			ImageRequired: q.ImageRequired,
		},
	}
	if q.QType.HasChoices() {
		aq.Choices = slices.Clone(q.Choices)
	}
	return aq
}

// Clone returns a deep copy of a.
func (a Attempt) Clone() Attempt {
	out := a
	if a.Score != nil {
		s := *a.Score
		out.Score = &s
	}
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		out.SubmittedAt = &t
	}
	out.AttemptQuestions = make([]AttemptQuestion, len(a.AttemptQuestions))
	for i, aq := range a.AttemptQuestions {
		out.AttemptQuestions[i] = aq.clone()
	}
	return out
}

func (aq AttemptQuestion) clone() AttemptQuestion {
	out := aq
	out.Choices = slices.Clone(aq.Choices)
	out.SelectedChoiceIDs = slices.Clone(aq.SelectedChoiceIDs)
	out.CorrectChoiceIDs = slices.Clone(aq.CorrectChoiceIDs)
	out.TextResponse = cloneStr(aq.TextResponse)
	out.NumericResponse = cloneF64(aq.NumericResponse)
	out.Key.TextAnswer = cloneStr(aq.Key.TextAnswer)
	out.Key.NumericAnswer = cloneF64(aq.Key.NumericAnswer)
	if aq.IsCorrect != nil {
		v := *aq.IsCorrect
		out.IsCorrect = &v
	}
	return out
}

func (q Question) clone() Question {
	out := q
	out.Choices = slices.Clone(q.Choices)
	out.TextAnswer = cloneStr(q.TextAnswer)
	out.NumericAnswer = cloneF64(q.NumericAnswer)
	if q.CategoryID != nil {
		v := *q.CategoryID
		out.CategoryID = &v
	}
	return out
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneF64(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
