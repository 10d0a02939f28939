package quiz

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/quizd/internal/grading"
)

func openAttempt(t *testing.T) Attempt {
	t.Helper()
	a := Attempt{ID: 1, PlayerUUID: testPlayer, Status: StatusOpen, Total: AttemptSize}
	for i, in := range bankInputs() {
		q, err := Validate(in)
		if err != nil {
			t.Fatal(err)
		}
		q.ID = int64(i + 1)
		for j := range q.Choices {
			q.Choices[j].ID = int64(10*(i+1) + j)
		}
		aq := Snapshot(q)
		aq.ID = int64(100 + i)
		a.AttemptQuestions = append(a.AttemptQuestions, aq)
	}
	return a
}

func TestMergeAnswerIgnoresMismatchedFields(t *testing.T) {
	a := openAttempt(t)
	text := findQ(a, QTypeText)
	got := mergeAnswer(text, Answer{
		TextResponse:      ptr("paris"),
		NumericResponse:   ptr(42.0),
		SelectedChoiceIDs: []int64{1},
	}, "attempts/1/x.png")
	if got.TextResponse == nil || *got.TextResponse != "paris" {
		t.Fatalf("text response not merged: %+v", got)
	}
	if got.NumericResponse != nil || len(got.SelectedChoiceIDs) != 0 || got.Image != "" {
		t.Fatalf("mismatched fields merged: %+v", got)
	}

	img := mergeAnswer(findQ(a, QTypeImage), Answer{TextResponse: ptr("x")}, "attempts/1/x.png")
	if img.Image != "attempts/1/x.png" || img.TextResponse != nil {
		t.Fatalf("image merge: %+v", img)
	}
}

func TestScoreAttemptThreeOfFive(t *testing.T) {
	a := openAttempt(t)
	answers := answersFor(a, map[QType]bool{QTypeText: true, QTypeNumeric: true, QTypeSingle: true})
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := ScoreAttempt(grading.NewDefaultGrader(), a, answers, "", now)
	if got.Score == nil || *got.Score != 3 || got.Total != 5 {
		t.Fatalf("score=%v total=%d, want 3/5", got.Score, got.Total)
	}
	if got.Status != StatusScored || got.SubmittedAt == nil || !got.SubmittedAt.Equal(now) {
		t.Fatalf("status=%s submitted=%v", got.Status, got.SubmittedAt)
	}
	for _, aq := range got.AttemptQuestions {
		if aq.IsCorrect == nil || aq.CorrectChoiceIDs == nil {
			t.Fatalf("verdict not written for %s: %+v", aq.QType, aq)
		}
	}
	if ids := findQ(got, QTypeSingle).CorrectChoiceIDs; !reflect.DeepEqual(ids, []int64{31}) {
		t.Fatalf("single correct ids = %v", ids)
	}
	if ids := findQ(got, QTypeMultiple).CorrectChoiceIDs; !reflect.DeepEqual(ids, []int64{40, 42}) {
		t.Fatalf("multiple correct ids = %v", ids)
	}
	if ids := findQ(got, QTypeText).CorrectChoiceIDs; len(ids) != 0 {
		t.Fatalf("text correct ids = %v", ids)
	}
	img := findQ(got, QTypeImage)
	if *img.IsCorrect || !img.NeedsReview {
		t.Fatalf("image without upload: %+v", img)
	}

	// input untouched
	if a.Score != nil || a.AttemptQuestions[0].IsCorrect != nil {
		t.Fatal("ScoreAttempt mutated its input")
	}
}

func TestScoreAttemptImageUpload(t *testing.T) {
	got := ScoreAttempt(grading.NewDefaultGrader(), openAttempt(t), nil, "attempts/1/a.png", time.Now())
	img := findQ(got, QTypeImage)
	if !*img.IsCorrect || !img.NeedsReview || img.Image != "attempts/1/a.png" {
		t.Fatalf("image with upload: %+v", img)
	}
	if *got.Score != 1 {
		t.Fatalf("score = %d, want 1", *got.Score)
	}
}

func TestAttemptQuestionJSONHidesKeyUntilScored(t *testing.T) {
	a := openAttempt(t)
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, leak := range []string{`"is_correct":true`, `"is_correct":false`, "Paris", "TextAnswer", "Key"} {
		if strings.Contains(s, leak) {
			t.Fatalf("open attempt leaks %q: %s", leak, s)
		}
	}
	if !strings.Contains(s, `"selected_choice_ids":[]`) || !strings.Contains(s, `"score":null`) {
		t.Fatalf("unexpected open shape: %s", s)
	}

	scored := ScoreAttempt(grading.NewDefaultGrader(), a, nil, "", time.Now())
	b, _ = json.Marshal(scored)
	if !strings.Contains(string(b), `"is_correct":true`) {
		t.Fatalf("scored attempt should expose correctness: %s", b)
	}
}
