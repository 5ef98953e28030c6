package grade

import (
	"math"
	"strings"
	"testing"

	"github.com/mchmarny/gradepulse/pkg/gradebook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const breakdownCSV = `PID,Q1,Q2,Q3
S1,2,3,
S2,4,,1
S3,,5,2
`

func TestRawRedemption(t *testing.T) {
	tbl, err := gradebook.ReadCSV(strings.NewReader(breakdownCSV))
	require.NoError(t, err)

	got, err := RawRedemption(tbl, "PID", []int{1, 3})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/6.0, got["S1"], 1e-9)
	assert.InDelta(t, 5.0/6.0, got["S2"], 1e-9)
	assert.InDelta(t, 2.0/6.0, got["S3"], 1e-9)
}

func TestRawRedemption_Errors(t *testing.T) {
	tbl, err := gradebook.ReadCSV(strings.NewReader(breakdownCSV))
	require.NoError(t, err)

	_, err = RawRedemption(tbl, "PID", []int{4})
	assert.ErrorIs(t, err, ErrQuestionOutOfRange)

	_, err = RawRedemption(tbl, "PID", []int{0})
	assert.ErrorIs(t, err, ErrQuestionOutOfRange)

	_, err = RawRedemption(tbl, "Student", []int{1})
	assert.ErrorIs(t, err, gradebook.ErrMissingIDColumn)

	_, err = RawRedemption(nil, "PID", []int{1})
	assert.Error(t, err)
}

func TestRawRedemption_ZeroMax(t *testing.T) {
	tbl, err := gradebook.ReadCSV(strings.NewReader("PID,Q1\nS1,0\nS2,\n"))
	require.NoError(t, err)
	got, err := RawRedemption(tbl, "PID", []int{1})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"S1": 0, "S2": 0}, got)
}

func TestAlignRedemption(t *testing.T) {
	got := AlignRedemption([]string{"S1", "S2", "S3"}, map[string]float64{"S3": 0.5, "S9": 1})
	assert.Equal(t, []float64{0, 0, 0.5}, got)
	assert.Equal(t, []float64{0}, AlignRedemption([]string{"S1"}, nil))
}

func TestZScores(t *testing.T) {
	got := ZScores([]float64{1, 2, 3})
	sd := math.Sqrt(2.0 / 3.0)
	assert.InDeltaSlice(t, []float64{-1 / sd, 0, 1 / sd}, got, 1e-9)

	for _, z := range ZScores([]float64{0.5, 0.5}) {
		assert.True(t, math.IsNaN(z))
	}
}

func TestRedeem(t *testing.T) {
	r, err := Redeem([]float64{0.25, 0.5, 0.75}, []float64{1.0, 0.5, 0.0})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.25, 0.5, 0.75}, r.Pre)
	assert.Equal(t, []bool{true, false, false}, r.Replaced)
	assert.InDeltaSlice(t, []float64{0.75, 0.5, 0.75}, r.Post, 1e-9)
}

func TestRedeem_ClipsAtOneWithoutLowerClip(t *testing.T) {
	r, err := Redeem([]float64{0, 1, 1, 0}, []float64{1, 0, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, false, true}, r.Replaced)
	assert.Equal(t, 1.0, r.Post[0], "mapped value above 1 is clipped")
	assert.Equal(t, 1.0, r.Post[1])
	assert.Equal(t, 1.0, r.Post[2])

	rz := -1 / math.Sqrt(3)
	assert.InDelta(t, rz*0.5+0.5, r.Post[3], 1e-9)
}

func TestRedeem_NoSpreadKeepsMidterm(t *testing.T) {
	r, err := Redeem([]float64{0.4, 0.6}, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, r.Replaced)
	assert.Equal(t, []float64{0.4, 0.6}, r.Post)
}

func TestRedeem_LengthMismatch(t *testing.T) {
	_, err := Redeem([]float64{0.4}, []float64{0, 0})
	assert.ErrorIs(t, err, errLengthMismatch)
}
