package grade

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var errBadLateness = errors.New("invalid lateness value")

// LatenessBracket applies Multiplier to submissions strictly later than After.
type LatenessBracket struct {
	After      time.Duration `json:"after" yaml:"after" validate:"gte=0"`
	Multiplier float64       `json:"multiplier" yaml:"multiplier" validate:"gte=0,lte=1"`
}

// LatenessPolicy maps elapsed time past the deadline to a score multiplier.
type LatenessPolicy struct {
	Brackets   []LatenessBracket `json:"brackets" yaml:"brackets" validate:"dive"`
	Categories []Category        `json:"categories" yaml:"categories" validate:"dive,oneof=lab project midterm final disc checkpoint"`
}

// DefaultLatenessPolicy is a two hour grace period, then 0.9 up to a week,
// 0.7 up to two weeks and 0.4 after that. It applies to labs only.
func DefaultLatenessPolicy() LatenessPolicy {
	return LatenessPolicy{
		Brackets: []LatenessBracket{
			{After: 2 * time.Hour, Multiplier: 0.9},
			{After: week, Multiplier: 0.7},
			{After: 2 * week, Multiplier: 0.4},
		},
		Categories: []Category{Lab},
	}
}

// Multiplier returns the multiplier for a lateness duration. Thresholds are
// strict: a duration equal to a bracket's After stays in the lower bracket.
func (p LatenessPolicy) Multiplier(d time.Duration) float64 {
	m := 1.0
	var reached time.Duration = -1
	for _, b := range p.Brackets {
		if d > b.After && b.After > reached {
			m = b.Multiplier
			reached = b.After
		}
	}
	return m
}

// Applies reports whether the penalty is applied to the category.
func (p LatenessPolicy) Applies(c Category) bool {
	return slices.Contains(p.Categories, c)
}

// Multipliers maps raw lateness cells to multipliers. Blank cells are on time;
// cells that cannot be parsed are treated as on time and logged.
func (p LatenessPolicy) Multipliers(values []string) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		d, err := ParseLateness(v)
		if err != nil {
			slog.Warn("lateness treated as on time", "value", v, "error", err)
			d = 0
		}
		out[i] = p.Multiplier(d)
	}
	return out
}

// LatenessMultiplier applies the default lateness policy.
func LatenessMultiplier(d time.Duration) float64 {
	return DefaultLatenessPolicy().Multiplier(d)
}

// ParseLateness parses "H:M:S" with unbounded hours ("74:30:00"), optional
// fractional seconds, and an optional "N days " prefix. Blank is zero.
func ParseLateness(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var total time.Duration
	if fields := strings.Fields(s); len(fields) == 3 && strings.HasPrefix(fields[1], "day") {
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", errBadLateness, s)
		}
		total = time.Duration(n) * day
		s = fields[2]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", errBadLateness, s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: %q", errBadLateness, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", errBadLateness, s)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("%w: %q", errBadLateness, s)
	}

	total += time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second))
	return total, nil
}
