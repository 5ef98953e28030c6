package grade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLateness(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"   ", 0},
		{"00:00:00", 0},
		{"2:00:00", 2 * time.Hour},
		{"02:00:01", 2*time.Hour + time.Second},
		{"74:30:00", 74*time.Hour + 30*time.Minute},
		{"00:00:01.5", 1500 * time.Millisecond},
		{"3 days 00:00:00", 72 * time.Hour},
		{"1 day 01:00:00", 25 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLateness(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLateness_Invalid(t *testing.T) {
	for _, in := range []string{"late", "1:00", "1:60:00", "1:00:60", "-1:00:00", "x days 00:00:00"} {
		_, err := ParseLateness(in)
		assert.ErrorIs(t, err, errBadLateness, in)
	}
}

func TestLatenessMultiplier_Boundaries(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0:00:00", 1.0},
		{"2:00:00", 1.0},
		{"2:00:01", 0.9},
		{"168:00:00", 0.9},
		{"7 days 00:00:00", 0.9},
		{"168:00:01", 0.7},
		{"336:00:00", 0.7},
		{"14 days 00:00:00", 0.7},
		{"336:00:01", 0.4},
		{"1000:00:00", 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseLateness(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, LatenessMultiplier(d))
		})
	}
}

func TestLatenessMultiplier_Monotonic(t *testing.T) {
	prev := LatenessMultiplier(0)
	for d := time.Duration(0); d <= 20*day; d += 30 * time.Minute {
		m := LatenessMultiplier(d)
		assert.LessOrEqual(t, m, prev, "at %s", d)
		prev = m
	}
}

func TestLatenessPolicy_UnorderedBrackets(t *testing.T) {
	p := LatenessPolicy{Brackets: []LatenessBracket{
		{After: 2 * week, Multiplier: 0.4},
		{After: 2 * time.Hour, Multiplier: 0.9},
	}}
	assert.Equal(t, 1.0, p.Multiplier(time.Hour))
	assert.Equal(t, 0.9, p.Multiplier(3*time.Hour))
	assert.Equal(t, 0.4, p.Multiplier(3*week))
}

func TestLatenessPolicy_Multipliers(t *testing.T) {
	p := DefaultLatenessPolicy()
	got := p.Multipliers([]string{"", "72:00:00", "not a time", "400:00:00"})
	assert.Equal(t, []float64{1.0, 0.9, 1.0, 0.4}, got)
}

func TestLatenessPolicy_Applies(t *testing.T) {
	p := DefaultLatenessPolicy()
	assert.True(t, p.Applies(Lab))
	assert.False(t, p.Applies(Project))
	assert.False(t, p.Applies(Final))
}
