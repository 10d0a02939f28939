package main

import "github.com/mind-engage/quizd/internal/quiz"

func f64(v float64) *float64 { return &v }
func str(v string) *string { return &v }

func choices(correct []bool, texts ...string) []quiz.ChoiceInput {
	out := make([]quiz.ChoiceInput, len(texts))
	for i, t := range texts {
		out[i] = quiz.ChoiceInput{Text: t, IsCorrect: correct[i]}
	}
	return out
}

// sampleQuestions is the demo bank: two of each type plus a few extra.
var sampleQuestions = []quiz.QuestionInput{
	{Prompt: "What is the capital of France?", QType: "text", Difficulty: "easy", TextAnswer: str("Paris")},
	{Prompt: "2 + 2 = ?", QType: "numeric", Difficulty: "easy", NumericAnswer: f64(4)},
	{Prompt: "Upload a picture of anything (demo).", QType: "image", Difficulty: "easy", ImageRequired: true},
	{Prompt: "Select the primary color.", QType: "single", Difficulty: "easy",
		Choices: choices([]bool{false, true, false}, "Green", "Blue", "Orange")},
	{Prompt: "Select all even numbers.", QType: "multiple", Difficulty: "easy",
		Choices: choices([]bool{false, true, false, true}, "1", "2", "3", "4")},
	{Prompt: "Reverse of 'stressed'?", QType: "text", Difficulty: "med", TextAnswer: str("desserts")},
	{Prompt: "10 / 2 = ?", QType: "numeric", Difficulty: "easy", NumericAnswer: f64(5)},
	{Prompt: "Pick the mammal.", QType: "single", Difficulty: "med",
		Choices: choices([]bool{false, true, false}, "Shark", "Dolphin", "Octopus")},
	{Prompt: "Select all prime numbers.", QType: "multiple", Difficulty: "med",
		Choices: choices([]bool{true, false, true, false}, "2", "4", "5", "6")},
	{Prompt: "Name of our planet?", QType: "text", Difficulty: "easy", TextAnswer: str("Earth")},
}
