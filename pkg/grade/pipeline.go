package grade

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/gradepulse/pkg/gradebook"
)

// Policy is the full grading configuration.
type Policy struct {
	Weights  Weights        `json:"weights" yaml:"weights"`
	Cutoffs  Cutoffs        `json:"cutoffs" yaml:"cutoffs"`
	Lateness LatenessPolicy `json:"lateness" yaml:"lateness"`
}

func DefaultPolicy() Policy {
	return Policy{
		Weights:  DefaultWeights(),
		Cutoffs:  DefaultCutoffs(),
		Lateness: DefaultLatenessPolicy(),
	}
}

// Validate checks the cross-field rules struct tags cannot express.
func (p Policy) Validate() error {
	if err := p.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}
	if err := p.Cutoffs.Validate(); err != nil {
		return fmt.Errorf("invalid cutoffs: %w", err)
	}
	return nil
}

// Student is one row of computed grades.
type Student struct {
	ID          string               `json:"id" yaml:"id"`
	Section     string               `json:"section,omitempty" yaml:"section,omitempty"`
	Scores      map[Category]float64 `json:"scores" yaml:"scores"`
	Redemption  float64              `json:"redemption" yaml:"redemption"`
	MidtermPre  float64              `json:"midterm_pre" yaml:"midtermPre"`
	MidtermPost float64              `json:"midterm_post" yaml:"midtermPost"`
	Replaced    bool                 `json:"replaced" yaml:"replaced"`
	PreTotal    float64              `json:"pre_total" yaml:"preTotal"`
	PostTotal   float64              `json:"post_total" yaml:"postTotal"`
	PreLetter   Letter               `json:"pre_letter" yaml:"preLetter"`
	PostLetter  Letter               `json:"post_letter" yaml:"postLetter"`
}

// Improved reports whether redemption changed the letter grade.
func (s Student) Improved() bool {
	return s.PreLetter != s.PostLetter
}

// Result is the output of one grading run.
type Result struct {
	Policy   Policy    `json:"policy" yaml:"policy"`
	Catalog  *Catalog  `json:"-" yaml:"-"`
	Students []Student `json:"students" yaml:"students"`
}

// PreLetters returns the pre-redemption letters in student order.
func (r *Result) PreLetters() []Letter {
	out := make([]Letter, len(r.Students))
	for i, s := range r.Students {
		out[i] = s.PreLetter
	}
	return out
}

// PostLetters returns the post-redemption letters in student order.
func (r *Result) PostLetters() []Letter {
	out := make([]Letter, len(r.Students))
	for i, s := range r.Students {
		out[i] = s.PostLetter
	}
	return out
}

var errNilGradebook = errors.New("gradebook is nil")

// Run grades every student in the gradebook. Redemption scores are keyed by
// student id; a nil map means nobody took the redemption questions.
func Run(g *gradebook.Gradebook, redemption map[string]float64, p Policy) (*Result, error) {
	if g == nil {
		return nil, errNilGradebook
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := g.Len()
	cat := BuildCatalog(g)
	slog.Debug("catalog built", "students", n, "assignments", cat.Count())

	scores := ScoreCategories(g, cat, p.Lateness)
	pre, err := Aggregate(scores, p.Weights, n)
	if err != nil {
		return nil, fmt.Errorf("error aggregating pre-redemption totals: %w", err)
	}

	ids := g.IDs()
	raw := AlignRedemption(ids, redemption)
	red, err := Redeem(scores[Midterm], raw)
	if err != nil {
		return nil, fmt.Errorf("error applying redemption: %w", err)
	}

	post, err := Aggregate(scores.With(Midterm, red.Post), p.Weights, n)
	if err != nil {
		return nil, fmt.Errorf("error aggregating post-redemption totals: %w", err)
	}

	sections := g.Sections()
	res := &Result{
		Policy:   p,
		Catalog:  cat,
		Students: make([]Student, n),
	}
	var replaced int
	for i := range n {
		s := Student{
			ID:          ids[i],
			Section:     sections[i],
			Scores:      make(map[Category]float64, len(Categories)),
			Redemption:  raw[i],
			MidtermPre:  red.Pre[i],
			MidtermPost: red.Post[i],
			Replaced:    red.Replaced[i],
			PreTotal:    pre[i],
			PostTotal:   post[i],
			PreLetter:   p.Cutoffs.Letter(pre[i]),
			PostLetter:  p.Cutoffs.Letter(post[i]),
		}
		for _, c := range Categories {
			s.Scores[c] = scores[c][i]
		}
		if s.Replaced {
			replaced++
		}
		res.Students[i] = s
	}

	slog.Debug("grades computed", "students", n, "midterms_replaced", replaced)
	return res, nil
}
