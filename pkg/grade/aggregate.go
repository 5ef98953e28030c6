package grade

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const weightTolerance = 0.001

// Weights is each category's share of the course total.
type Weights struct {
	Lab        float64 `json:"lab" yaml:"lab" validate:"gte=0,lte=1"`
	Project    float64 `json:"project" yaml:"project" validate:"gte=0,lte=1"`
	Checkpoint float64 `json:"checkpoint" yaml:"checkpoint" validate:"gte=0,lte=1"`
	Discussion float64 `json:"discussion" yaml:"discussion" validate:"gte=0,lte=1"`
	Midterm    float64 `json:"midterm" yaml:"midterm" validate:"gte=0,lte=1"`
	Final      float64 `json:"final" yaml:"final" validate:"gte=0,lte=1"`
}

// DefaultWeights returns the syllabus weights.
func DefaultWeights() Weights {
	return Weights{
		Lab:        0.20,
		Project:    0.30,
		Checkpoint: 0.025,
		Discussion: 0.025,
		Midterm:    0.15,
		Final:      0.30,
	}
}

// Of returns the weight of a category.
func (w Weights) Of(c Category) float64 {
	switch c {
	case Lab:
		return w.Lab
	case Project:
		return w.Project
	case Checkpoint:
		return w.Checkpoint
	case Discussion:
		return w.Discussion
	case Midterm:
		return w.Midterm
	case Final:
		return w.Final
	}
	return 0
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Lab + w.Project + w.Checkpoint + w.Discussion + w.Midterm + w.Final
}

// Validate checks that weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	for _, c := range Categories {
		if w.Of(c) < 0 {
			return fmt.Errorf("weight for %s is negative: %v", c, w.Of(c))
		}
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %.4f", w.Sum())
	}
	return nil
}

var errLengthMismatch = errors.New("category scores do not match student count")

// Aggregate combines category proportions into one weighted total per
// student. A category absent from scores contributes zero for its share.
func Aggregate(scores CategoryScores, w Weights, n int) ([]float64, error) {
	total := make([]float64, n)
	for _, c := range Categories {
		s, ok := scores[c]
		if !ok {
			continue
		}
		if len(s) != n {
			return nil, fmt.Errorf("%w: %s has %d values, want %d", errLengthMismatch, c, len(s), n)
		}
		floats.AddScaled(total, w.Of(c), s)
	}
	return total, nil
}
