package quiz

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// QuestionInput is an admin-authored question payload as received from a
// client. It only becomes a Question through Validate.
type QuestionInput struct {
	Prompt        string        `json:"prompt" validate:"required,max=4000"`
	QType         string        `json:"qtype" validate:"required,oneof=text numeric single multiple image"`
	Difficulty    string        `json:"difficulty" validate:"required,oneof=easy med hard"`
	Category      *int64        `json:"category" validate:"omitempty,gt=0"`
	TextAnswer    *string       `json:"text_answer"`
	NumericAnswer *float64      `json:"numeric_answer"`
	ImageRequired bool          `json:"image_required"`
	Choices       []ChoiceInput `json:"choices" validate:"dive"`
}

// ChoiceInput.ID is accepted for client convenience and discarded: an edit
// replaces the whole choice set.
type ChoiceInput struct {
	ID        *int64 `json:"id,omitempty"`
	Text      string `json:"text" validate:"required,max=255"`
	IsCorrect bool   `json:"is_correct"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate normalizes and checks in. On success the returned Question has
// no id and carries only the fields relevant to its type.
func Validate(in QuestionInput) (Question, error) {
	in.Prompt = strings.TrimSpace(in.Prompt)
	qt, _ := ParseQType(in.QType)
	in.QType = string(qt)
	in.Difficulty = strings.ToLower(strings.TrimSpace(in.Difficulty))
	if !qt.HasChoices() {
		in.Choices = nil
	}
	for i := range in.Choices {
		in.Choices[i].Text = strings.TrimSpace(in.Choices[i].Text)
	}

	if err := validate.Struct(in); err != nil {
		return Question{}, translate(err)
	}

	q := Question{
		Prompt:        in.Prompt,
		QType:         qt,
		Difficulty:    Difficulty(in.Difficulty),
		CategoryID:    in.Category,
		ImageRequired: in.ImageRequired,
	}

	switch qt {
	case QTypeText:
		if in.TextAnswer == nil || strings.TrimSpace(*in.TextAnswer) == "" {
			return Question{}, invalid("text_answer", "required for text questions")
		}
		q.TextAnswer = cloneStr(in.TextAnswer)
	case QTypeNumeric:
		if in.NumericAnswer == nil {
			return Question{}, invalid("numeric_answer", "required for numeric questions")
		}
		if v := *in.NumericAnswer; math.IsNaN(v) || math.IsInf(v, 0) {
			return Question{}, invalid("numeric_answer", "must be a finite number")
		}
		q.NumericAnswer = cloneF64(in.NumericAnswer)
	case QTypeSingle, QTypeMultiple:
		if len(in.Choices) == 0 {
			return Question{}, invalid("choices", "choice questions must include at least one choice")
		}
		correct := 0
		q.Choices = make([]Choice, 0, len(in.Choices))
		for _, c := range in.Choices {
			if c.IsCorrect {
				correct++
			}
			q.Choices = append(q.Choices, Choice{Text: c.Text, IsCorrect: c.IsCorrect})
		}
		if qt == QTypeSingle && correct != 1 {
			return Question{}, invalid("choices", "single-choice question must have exactly one correct choice")
		}
		if qt == QTypeMultiple && correct < 1 {
			return Question{}, invalid("choices", "multiple-choice question must have at least one correct choice")
		}
	}
	return q, nil
}

// Input converts q back into the payload shape, so a stored question can be
// re-validated or edited.
func (q Question) Input() QuestionInput {
	in := QuestionInput{
		Prompt:        q.Prompt,
		QType:         string(q.QType),
		Difficulty:    string(q.Difficulty),
		Category:      q.CategoryID,
		TextAnswer:    cloneStr(q.TextAnswer),
		NumericAnswer: cloneF64(q.NumericAnswer),
		ImageRequired: q.ImageRequired,
	}
	for _, c := range q.Choices {
		id := c.ID
		in.Choices = append(in.Choices, ChoiceInput{ID: &id, Text: c.Text, IsCorrect: c.IsCorrect})
	}
	return in
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("payload", err.Error())
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "must not be empty"
	case "oneof":
		reason = "must be one of: " + fe.Param()
	case "max":
		reason = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		reason = "must be a positive id"
	default:
		reason = "failed " + fe.Tag()
	}
	return invalid(field, reason)
}
