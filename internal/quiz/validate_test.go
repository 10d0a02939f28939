package quiz

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestValidateAccepts(t *testing.T) {
	for _, in := range bankInputs() {
		q, err := Validate(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in.Prompt, err)
		}
		if q.ID != 0 {
			t.Fatalf("%q: validated question must not carry an id", in.Prompt)
		}
	}
}

func TestValidateMultiAlias(t *testing.T) {
	q, err := Validate(QuestionInput{
		Prompt: "Pick evens", QType: " MULTI ", Difficulty: "Easy",
		Choices: []ChoiceInput{{Text: "2", IsCorrect: true}, {Text: "3"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if q.QType != QTypeMultiple {
		t.Fatalf("qtype = %q, want multiple", q.QType)
	}
	if q.Difficulty != DifficultyEasy {
		t.Fatalf("difficulty = %q", q.Difficulty)
	}
}

func TestValidateRejects(t *testing.T) {
	one := []ChoiceInput{{Text: "a", IsCorrect: true}}
	cases := []struct {
		name  string
		in    QuestionInput
		field string
	}{
		{"empty prompt", QuestionInput{Prompt: "  ", QType: "text", Difficulty: "easy", TextAnswer: ptr("x")}, "prompt"},
		{"unknown qtype", QuestionInput{Prompt: "p", QType: "essay", Difficulty: "easy"}, "qtype"},
		{"bad difficulty", QuestionInput{Prompt: "p", QType: "image", Difficulty: "extreme"}, "difficulty"},
		{"text without answer", QuestionInput{Prompt: "p", QType: "text", Difficulty: "easy"}, "text_answer"},
		{"text blank answer", QuestionInput{Prompt: "p", QType: "text", Difficulty: "easy", TextAnswer: ptr("   ")}, "text_answer"},
		{"numeric without answer", QuestionInput{Prompt: "p", QType: "numeric", Difficulty: "easy"}, "numeric_answer"},
		{"numeric NaN", QuestionInput{Prompt: "p", QType: "numeric", Difficulty: "easy", NumericAnswer: ptr(math.NaN())}, "numeric_answer"},
		{"numeric Inf", QuestionInput{Prompt: "p", QType: "numeric", Difficulty: "easy", NumericAnswer: ptr(math.Inf(1))}, "numeric_answer"},
		{"single no choices", QuestionInput{Prompt: "p", QType: "single", Difficulty: "easy"}, "choices"},
		{"single two correct", QuestionInput{Prompt: "p", QType: "single", Difficulty: "easy",
			Choices: []ChoiceInput{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}}}, "choices"},
		{"single none correct", QuestionInput{Prompt: "p", QType: "single", Difficulty: "easy",
			Choices: []ChoiceInput{{Text: "a"}, {Text: "b"}}}, "choices"},
		{"multiple none correct", QuestionInput{Prompt: "p", QType: "multiple", Difficulty: "easy",
			Choices: []ChoiceInput{{Text: "a"}}}, "choices"},
		{"blank choice text", QuestionInput{Prompt: "p", QType: "single", Difficulty: "easy",
			Choices: []ChoiceInput{{Text: " ", IsCorrect: true}}}, "choices[0].text"},
		{"bad category", QuestionInput{Prompt: "p", QType: "single", Difficulty: "easy", Category: ptr(int64(-1)), Choices: one}, "category"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Validate(c.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want *ValidationError, got %v", err)
			}
			if ve.Field != c.field {
				t.Fatalf("field = %q (%s), want %q", ve.Field, ve.Reason, c.field)
			}
		})
	}
}

func TestValidateDropsIrrelevantFields(t *testing.T) {
	q, err := Validate(QuestionInput{
		Prompt: "p", QType: "text", Difficulty: "easy", TextAnswer: ptr("x"),
		Choices: []ChoiceInput{{Text: ""}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Choices) != 0 || q.NumericAnswer != nil {
		t.Fatalf("irrelevant fields kept: %+v", q)
	}
}

func TestValidateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	for _, in := range bankInputs() {
		q, err := Validate(in)
		if err != nil {
			t.Fatal(err)
		}
		saved, err := store.CreateQuestion(ctx, q)
		if err != nil {
			t.Fatal(err)
		}
		got, err := store.GetQuestion(ctx, saved.ID)
		if err != nil {
			t.Fatal(err)
		}
		again, err := Validate(got.Input())
		if err != nil {
			t.Fatalf("%q: re-validate failed: %v", in.Prompt, err)
		}
		again.ID, again.CreatedAt = got.ID, got.CreatedAt
		for i := range again.Choices {
			again.Choices[i].ID = got.Choices[i].ID
		}
		if !reflect.DeepEqual(again, got) {
			t.Fatalf("round trip changed question:\n got  %+v\n want %+v", again, got)
		}
	}
}
