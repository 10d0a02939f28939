package quiz

import (
	"math"
	"slices"
	"time"

	"github.com/mind-engage/quizd/internal/grading"
)

// mergeAnswer copies the response fields that belong to aq's type; the
// rest of ans is ignored. imageKey is the stored upload for the whole
// submission and only lands on image questions.
func mergeAnswer(aq AttemptQuestion, ans Answer, imageKey string) AttemptQuestion {
	aq.TextResponse = nil
	aq.NumericResponse = nil
	aq.SelectedChoiceIDs = []int64{}
	aq.Image = ""

	switch aq.QType {
	case QTypeText:
		aq.TextResponse = cloneStr(ans.TextResponse)
	case QTypeNumeric:
		aq.NumericResponse = cloneF64(ans.NumericResponse)
	case QTypeSingle, QTypeMultiple:
		if ans.SelectedChoiceIDs != nil {
			aq.SelectedChoiceIDs = slices.Clone(ans.SelectedChoiceIDs)
		}
	case QTypeImage:
		aq.Image = imageKey
	}
	return aq
}

// A snapshot without a numeric key can never match.
var nan = math.NaN()

// gradingItem maps a snapshot onto its grading variant.
func gradingItem(aq AttemptQuestion) grading.Item {
	switch aq.QType {
	case QTypeText:
		it := grading.TextItem{Response: aq.TextResponse}
		if aq.Key.TextAnswer != nil {
			it.Answer = *aq.Key.TextAnswer
		}
		return it
	case QTypeNumeric:
		it := grading.NumericItem{Response: aq.NumericResponse}
		if aq.Key.NumericAnswer != nil {
			it.Answer = *aq.Key.NumericAnswer
		} else {
			it.Answer = nan
		}
		return it
	case QTypeSingle:
		return grading.SingleItem{Choices: gradingChoices(aq.Choices), Selected: aq.SelectedChoiceIDs}
	case QTypeMultiple:
		return grading.MultipleItem{Choices: gradingChoices(aq.Choices), Selected: aq.SelectedChoiceIDs}
	case QTypeImage:
		return grading.ImageItem{Image: aq.Image}
	}
	return nil
}

func gradingChoices(cs []Choice) []grading.Choice {
	out := make([]grading.Choice, 0, len(cs))
	for _, c := range cs {
		out = append(out, grading.Choice{ID: c.ID, Correct: c.IsCorrect})
	}
	return out
}

// ScoreAttempt merges answers into an open attempt, evaluates every question
// in order and returns the scored attempt. a is not modified.
func ScoreAttempt(g grading.Grader, a Attempt, answers map[int64]Answer, imageKey string, now time.Time) Attempt {
	out := a.Clone()
	score := 0
	for i, aq := range out.AttemptQuestions {
		aq = mergeAnswer(aq, answers[aq.ID], imageKey)
		v := g.Grade(gradingItem(aq))
		correct := v.Correct
		aq.IsCorrect = &correct
		aq.CorrectChoiceIDs = v.CorrectChoiceIDs
		if aq.CorrectChoiceIDs == nil {
			aq.CorrectChoiceIDs = []int64{}
		}
		aq.NeedsReview = v.NeedsReview
		if correct {
			score++
		}
		out.AttemptQuestions[i] = aq
	}
	out.Score = &score
	out.Total = len(out.AttemptQuestions)
	out.Status = StatusScored
	submitted := now.UTC()
	out.SubmittedAt = &submitted
	return out
}
