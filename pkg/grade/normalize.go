package grade

import (
	"github.com/mchmarny/gradepulse/pkg/gradebook"
	"gonum.org/v1/gonum/floats"
)

// AssignmentScore returns each student's proportion for one assignment:
// summed earned points over summed max points, clipped to [0,1]. Missing
// earned points count as zero. Components without max points are skipped and
// a zero max yields zero.
// When the lateness policy applies to the assignment's category each
// component is scaled by its lateness multiplier.
func AssignmentScore(g *gradebook.Gradebook, a *Assignment, lp LatenessPolicy) []float64 {
	n := g.Len()
	earned := make([]float64, n)
	var maxSum float64

	penalize := lp.Applies(a.Category)
	for _, c := range a.Components {
		if !c.HasMax {
			continue
		}
		raw := gradebook.FillNaN(g.Floats(c.Column), 0)
		if penalize && c.Lateness != "" {
			floats.Mul(raw, lp.Multipliers(g.Strings(c.Lateness)))
		}
		floats.Add(earned, raw)
		maxSum += c.MaxPoints
	}

	if maxSum == 0 {
		return make([]float64, n)
	}
	floats.Scale(1/maxSum, earned)
	for i, v := range earned {
		earned[i] = max(0, min(v, 1))
	}
	return earned
}

// AssignmentScores scores every assignment in the list.
func AssignmentScores(g *gradebook.Gradebook, list []*Assignment, lp LatenessPolicy) [][]float64 {
	out := make([][]float64, 0, len(list))
	for _, a := range list {
		out = append(out, AssignmentScore(g, a, lp))
	}
	return out
}

// MeanScore averages per-assignment proportions for each student with equal
// weight per assignment. No assignments yields zeros.
func MeanScore(scores [][]float64, n int) []float64 {
	out := make([]float64, n)
	if len(scores) == 0 {
		return out
	}
	for _, s := range scores {
		floats.Add(out, s)
	}
	floats.Scale(1/float64(len(scores)), out)
	return out
}

// DropLowestMean averages each student's scores after removing their single
// lowest one. With fewer than two assignments nothing is dropped.
func DropLowestMean(scores [][]float64, n int) []float64 {
	if len(scores) <= 1 {
		return MeanScore(scores, n)
	}

	out := make([]float64, n)
	row := make([]float64, len(scores))
	for i := range n {
		for j, s := range scores {
			row[j] = s[i]
		}
		out[i] = (floats.Sum(row) - floats.Min(row)) / float64(len(row)-1)
	}
	return out
}

// CategoryScores holds one proportion per student for each category.
type CategoryScores map[Category][]float64

// With returns a copy with the category replaced. The receiver is unchanged.
func (s CategoryScores) With(c Category, values []float64) CategoryScores {
	out := make(CategoryScores, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[c] = values
	return out
}

// ScoreCategories computes every category's per-student proportion. Labs drop
// the lowest score; all other categories are a plain equal-weight mean.
func ScoreCategories(g *gradebook.Gradebook, cat *Catalog, lp LatenessPolicy) CategoryScores {
	n := g.Len()
	out := make(CategoryScores, len(Categories))
	for _, c := range Categories {
		scores := AssignmentScores(g, cat.Get(c), lp)
		if c == Lab {
			out[c] = DropLowestMean(scores, n)
			continue
		}
		out[c] = MeanScore(scores, n)
	}
	return out
}
