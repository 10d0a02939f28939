package quiz

import (
	"context"
	"testing"

	"github.com/mind-engage/quizd/internal/grading"
)

const testPlayer = "5b0a3f0e-3c1d-4a4e-9a57-0c1b2f0d9e11"

func ptr[T any](v T) *T { return &v }

// firstN is a deterministic Sampler: it takes the pool head.
type firstN struct{}

func (firstN) Sample(pool []int64, n int) []int64 {
	out := make([]int64, n)
	copy(out, pool[:n])
	return out
}

// bankInputs is one question per type, in the order the service samples
// them with firstN.
func bankInputs() []QuestionInput {
	return []QuestionInput{
		{Prompt: "Capital of France?", QType: "text", Difficulty: "easy", TextAnswer: ptr("Paris")},
		{Prompt: "6 x 7?", QType: "numeric", Difficulty: "easy", NumericAnswer: ptr(42.0)},
		{Prompt: "Largest planet?", QType: "single", Difficulty: "med", Choices: []ChoiceInput{
			{Text: "Mars"}, {Text: "Jupiter", IsCorrect: true}, {Text: "Venus"},
		}},
		{Prompt: "Primary colors?", QType: "multi", Difficulty: "med", Choices: []ChoiceInput{
			{Text: "Red", IsCorrect: true}, {Text: "Green"}, {Text: "Blue", IsCorrect: true},
		}},
		{Prompt: "Draw a cat", QType: "image", Difficulty: "hard", ImageRequired: true},
	}
}

func seedBank(t *testing.T, svc *Service) []Question {
	t.Helper()
	var out []Question
	for _, in := range bankInputs() {
		q, err := svc.CreateQuestion(context.Background(), in)
		if err != nil {
			t.Fatalf("seed %q: %v", in.Prompt, err)
		}
		out = append(out, q)
	}
	return out
}

func newTestService(store Store, opts ...ServiceOption) *Service {
	opts = append([]ServiceOption{WithSampler(firstN{})}, opts...)
	return NewService(store, grading.NewDefaultGrader(), opts...)
}

// answersFor builds a response for every question of a. Types listed in
// right get the correct answer, the rest a wrong one. Image questions are
// driven by the upload, not by answers.
func answersFor(a Attempt, right map[QType]bool) map[int64]Answer {
	out := map[int64]Answer{}
	for _, aq := range a.AttemptQuestions {
		ok := right[aq.QType]
		switch aq.QType {
		case QTypeText:
			v := "London"
			if ok {
				v = "  paris "
			}
			out[aq.ID] = Answer{TextResponse: &v}
		case QTypeNumeric:
			v := 41.0
			if ok {
				v = 42
			}
			out[aq.ID] = Answer{NumericResponse: &v}
		case QTypeSingle, QTypeMultiple:
			var ids []int64
			for _, c := range aq.Choices {
				if c.IsCorrect == ok {
					ids = append(ids, c.ID)
				}
			}
			out[aq.ID] = Answer{SelectedChoiceIDs: ids}
		}
	}
	return out
}

func findQ(a Attempt, t QType) AttemptQuestion {
	for _, aq := range a.AttemptQuestions {
		if aq.QType == t {
			return aq
		}
	}
	return AttemptQuestion{}
}
