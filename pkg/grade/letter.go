package grade

import (
	"cmp"
	"fmt"
	"slices"
)

// Letter is a course letter grade.
type Letter string

const (
	A Letter = "A"
	B Letter = "B"
	C Letter = "C"
	D Letter = "D"
	F Letter = "F"
)

// Letters lists the grades from best to worst.
var Letters = []Letter{A, B, C, D, F}

// Cutoffs are the inclusive lower bounds of A through D. Anything below D is F.
type Cutoffs struct {
	A float64 `json:"a" yaml:"a" validate:"gte=0,lte=1"`
	B float64 `json:"b" yaml:"b" validate:"gte=0,lte=1"`
	C float64 `json:"c" yaml:"c" validate:"gte=0,lte=1"`
	D float64 `json:"d" yaml:"d" validate:"gte=0,lte=1"`
}

func DefaultCutoffs() Cutoffs {
	return Cutoffs{A: 0.9, B: 0.8, C: 0.7, D: 0.6}
}

// Validate checks that cutoffs strictly decrease from A to D.
func (c Cutoffs) Validate() error {
	if c.A <= c.B || c.B <= c.C || c.C <= c.D {
		return fmt.Errorf("cutoffs must decrease from A to D: %+v", c)
	}
	return nil
}

// Letter maps a total to a letter, checking A first.
func (c Cutoffs) Letter(total float64) Letter {
	switch {
	case total >= c.A:
		return A
	case total >= c.B:
		return B
	case total >= c.C:
		return C
	case total >= c.D:
		return D
	default:
		return F
	}
}

// Letters maps every total to a letter.
func (c Cutoffs) Letters(totals []float64) []Letter {
	out := make([]Letter, len(totals))
	for i, t := range totals {
		out[i] = c.Letter(t)
	}
	return out
}

// LetterFor maps a total using the default cutoffs.
func LetterFor(total float64) Letter {
	return DefaultCutoffs().Letter(total)
}

// LetterShare is the part of a population that received a letter.
type LetterShare struct {
	Letter     Letter  `json:"letter" yaml:"letter"`
	Count      int     `json:"count" yaml:"count"`
	Proportion float64 `json:"proportion" yaml:"proportion"`
}

// LetterProportions returns the share of each letter that occurs, largest
// first. Ties are broken by count, then by letter.
func LetterProportions(letters []Letter) []LetterShare {
	if len(letters) == 0 {
		return []LetterShare{}
	}

	counts := make(map[Letter]int, len(Letters))
	for _, l := range letters {
		counts[l]++
	}

	out := make([]LetterShare, 0, len(counts))
	for l, n := range counts {
		out = append(out, LetterShare{
			Letter:     l,
			Count:      n,
			Proportion: float64(n) / float64(len(letters)),
		})
	}

	slices.SortFunc(out, func(a, b LetterShare) int {
		if c := cmp.Compare(b.Proportion, a.Proportion); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Letter, b.Letter)
	})
	return out
}
