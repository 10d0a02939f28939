package quiz

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
)

// Answer is one player response. Only the field matching the question type
// is ever merged into the snapshot.
type Answer struct {
	TextResponse      *string
	NumericResponse   *float64
	SelectedChoiceIDs []int64
}

// Upload is an image attached to a submission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Submission is everything a player sends when finishing an attempt.
// Answers is keyed by AttemptQuestion id.
type Submission struct {
	Answers map[int64]Answer
	Image   *Upload
}

// DecodeAnswers parses a submission body. Both {"answers": {...}} and the
// bare map are accepted. Keys that are not AttemptQuestion ids and values
// that cannot be coerced are dropped rather than rejected.
func DecodeAnswers(body []byte) (map[int64]Answer, error) {
	out := map[int64]Answer{}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return out, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, err
	}
	if inner, ok := top["answers"]; ok {
		top = nil
		if err := json.Unmarshal(inner, &top); err != nil {
			// "answers" may arrive as a JSON string from a form field
			var s string
			if json.Unmarshal(inner, &s) != nil {
				return out, nil
			}
			return DecodeAnswers([]byte(s))
		}
	}

	for k, raw := range top {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		var fields map[string]any
		if json.Unmarshal(raw, &fields) != nil {
			continue
		}
		out[id] = coerceAnswer(fields)
	}
	return out, nil
}

func coerceAnswer(fields map[string]any) Answer {
	var a Answer
	if s, ok := fields["text_response"].(string); ok {
		a.TextResponse = &s
	}
	if f, ok := coerceFloat(fields["numeric_response"]); ok {
		a.NumericResponse = &f
	}
	if ids, ok := coerceIDs(fields["selected_choice_ids"]); ok {
		a.SelectedChoiceIDs = ids
	}
	return a
}

func coerceFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, ok := parseFloat(t)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// maxExactID bounds JSON number ids to the range a float64 holds exactly.
const maxExactID = 1 << 53

// coerceIDs accepts numbers and numeric strings. One bad element drops the
// whole selection.
func coerceIDs(v any) ([]int64, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]int64, 0, len(arr))
	for _, e := range arr {
		switch t := e.(type) {
		case float64:
			if t != math.Trunc(t) || math.Abs(t) > maxExactID {
				return nil, false
			}
			out = append(out, int64(t))
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
			if err != nil {
				return nil, false
			}
			out = append(out, n)
		default:
			return nil, false
		}
	}
	return out, true
}

// parseFloat accepts a whole numeric string only; trailing text fails.
func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
