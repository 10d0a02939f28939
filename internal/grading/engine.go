package grading

// Item is the frozen answer key of one attempt question paired with the
// player's response. The variant set is closed: TextItem, NumericItem,
// SingleItem, MultipleItem and ImageItem.
type Item interface {
	isItem()
}

// Choice is the grading view of a snapshot choice.
type Choice struct {
	ID      int64
	Correct bool
}

type TextItem struct {
	Answer   string
	Response *string
}

type NumericItem struct {
	Answer   float64
	Response *float64
}

type SingleItem struct {
	Choices  []Choice
	Selected []int64
}

type MultipleItem struct {
	Choices  []Choice
	Selected []int64
}

// ImageItem carries the stored upload reference, "" when nothing was sent.
type ImageItem struct {
	Image string
}

func (TextItem) isItem()     {}
func (NumericItem) isItem()  {}
func (SingleItem) isItem()   {}
func (MultipleItem) isItem() {}
func (ImageItem) isItem()    {}

// Verdict is the outcome of evaluating a single item.
type Verdict struct {
	Correct          bool
	CorrectChoiceIDs []int64 // never nil; empty for non-choice items
	NeedsReview      bool    // verdict is provisional until a person looks at it
}

// Grader evaluates items. Implementations must be pure and deterministic.
type Grader interface {
	Grade(it Item) Verdict
}

// Engine options

type Option func(*config)

type config struct {
	MaxEditDistance  int     // fuzzy acceptance for text answers, 0 disables
	NumericTolerance float64 // absolute tolerance for numeric answers, 0 means exact
}

func WithMaxEditDistance(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.MaxEditDistance = n
		}
	}
}

func WithNumericTolerance(t float64) Option {
	return func(c *config) {
		if t > 0 {
			c.NumericTolerance = t
		}
	}
}

type defaultGrader struct {
	cfg config
}

// NewDefaultGrader returns a Grader with exact text and numeric matching
// unless options relax them.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	return &defaultGrader{cfg: cfg}
}

func (g *defaultGrader) Grade(it Item) Verdict {
	switch v := it.(type) {
	case TextItem:
		return g.gradeText(v)
	case NumericItem:
		return g.gradeNumeric(v)
	case SingleItem:
		return gradeSingle(v)
	case MultipleItem:
		return gradeMultiple(v)
	case ImageItem:
		return gradeImage(v)
	default:
		return Verdict{CorrectChoiceIDs: []int64{}}
	}
}

func (g *defaultGrader) gradeText(it TextItem) Verdict {
	res := Verdict{CorrectChoiceIDs: []int64{}}
	if it.Response == nil {
		return res
	}
	want := Normalize(it.Answer)
	got := Normalize(*it.Response)
	if want == "" {
		return res
	}
	if want == got {
		res.Correct = true
		return res
	}
	if g.cfg.MaxEditDistance > 0 && levenshtein(want, got) <= g.cfg.MaxEditDistance {
		res.Correct = true
	}
	return res
}

func gradeSingle(it SingleItem) Verdict {
	correct := correctIDs(it.Choices)
	res := Verdict{CorrectChoiceIDs: correct}
	res.Correct = len(correct) == 1 && len(it.Selected) == 1 && it.Selected[0] == correct[0]
	return res
}

func gradeMultiple(it MultipleItem) Verdict {
	correct := correctIDs(it.Choices)
	res := Verdict{CorrectChoiceIDs: correct}
	if len(correct) == 0 {
		return res
	}
	res.Correct = setEqual(toSet(correct), toSet(it.Selected))
	return res
}

// gradeImage accepts any upload. There is no content grading; the verdict
// stays provisional.
func gradeImage(it ImageItem) Verdict {
	res := Verdict{CorrectChoiceIDs: []int64{}, NeedsReview: true}
	res.Correct = it.Image != ""
	return res
}

// helpers

func correctIDs(choices []Choice) []int64 {
	out := make([]int64, 0, len(choices))
	for _, c := range choices {
		if c.Correct {
			out = append(out, c.ID)
		}
	}
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
