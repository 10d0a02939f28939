package grading

import "math"

// gradeNumeric compares exactly unless an absolute tolerance is configured.
// Non-finite responses never match.
func (g *defaultGrader) gradeNumeric(it NumericItem) Verdict {
	res := Verdict{CorrectChoiceIDs: []int64{}}
	if it.Response == nil {
		return res
	}
	got := *it.Response
	if math.IsNaN(got) || math.IsInf(got, 0) {
		return res
	}
	if g.cfg.NumericTolerance <= 0 {
		res.Correct = got == it.Answer
		return res
	}
	res.Correct = math.Abs(got-it.Answer) <= g.cfg.NumericTolerance
	return res
}
