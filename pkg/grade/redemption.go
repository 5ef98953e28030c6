package grade

import (
	"errors"
	"fmt"
	"math"

	"github.com/mchmarny/gradepulse/pkg/gradebook"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrQuestionOutOfRange is returned when a redemption question position is
// not a column of the final breakdown.
var ErrQuestionOutOfRange = errors.New("question position out of range")

// RawRedemption scores the redemption questions of a final exam breakdown.
// Questions are column positions (the id column sits at position 0). A
// question's max is the best observed score on it and missing answers count
// as zero. The result is keyed by student id.
func RawRedemption(t *gradebook.Table, idColumn string, questions []int) (map[string]float64, error) {
	if t == nil {
		return nil, gradebook.ErrEmptyTable
	}
	idIdx := t.Index(idColumn)
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %q", gradebook.ErrMissingIDColumn, idColumn)
	}
	for _, q := range questions {
		if q < 0 || q >= len(t.Header) || q == idIdx {
			return nil, fmt.Errorf("%w: %d (breakdown has %d columns)", ErrQuestionOutOfRange, q, len(t.Header))
		}
	}

	n := len(t.Rows)
	earned := make([]float64, n)
	var totalMax float64
	for _, q := range questions {
		col := make([]float64, n)
		for i, row := range t.Rows {
			col[i] = gradebook.ParseFloat(row[q])
		}
		col = gradebook.FillNaN(col, 0)
		if n > 0 {
			totalMax += floats.Max(col)
		}
		floats.Add(earned, col)
	}

	out := make(map[string]float64, n)
	for i, row := range t.Rows {
		if totalMax == 0 {
			out[row[idIdx]] = 0
			continue
		}
		out[row[idIdx]] = earned[i] / totalMax
	}
	return out, nil
}

// AlignRedemption orders redemption scores by student id. Students without a
// score get zero.
func AlignRedemption(ids []string, scores map[string]float64) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = scores[id]
	}
	return out
}

// ZScores standardizes values with the population standard deviation. With
// zero spread every z-score is NaN.
func ZScores(values []float64) []float64 {
	mean, sd := stat.PopMeanStdDev(values, nil)
	out := make([]float64, len(values))
	for i, v := range values {
		if sd == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / sd
	}
	return out
}

// Redemption is the outcome of the midterm redemption policy.
type Redemption struct {
	Pre      []float64 `json:"pre" yaml:"pre"`
	Post     []float64 `json:"post" yaml:"post"`
	Replaced []bool    `json:"replaced" yaml:"replaced"`
}

// Redeem replaces a student's midterm proportion when their redemption score
// is further above the redemption mean, in standard deviations, than their
// midterm is above the midterm mean. The replacement maps the redemption
// z-score back onto the midterm distribution and is capped at 1.0.
func Redeem(midterm, redemption []float64) (*Redemption, error) {
	if len(midterm) != len(redemption) {
		return nil, fmt.Errorf("%w: %d midterm scores, %d redemption scores",
			errLengthMismatch, len(midterm), len(redemption))
	}

	mz := ZScores(midterm)
	rz := ZScores(redemption)
	mean, sd := stat.PopMeanStdDev(midterm, nil)

	r := &Redemption{
		Pre:      append([]float64(nil), midterm...),
		Post:     make([]float64, len(midterm)),
		Replaced: make([]bool, len(midterm)),
	}
	for i := range midterm {
		v := midterm[i]
		if rz[i] > mz[i] {
			v = rz[i]*sd + mean
			r.Replaced[i] = true
		}
		r.Post[i] = math.Min(v, 1)
	}
	return r, nil
}
