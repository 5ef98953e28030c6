package gradebook

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testCSV = `PID,Section,lab01,lab01 - Max Points,lab01 - Lateness (H:M:S),Final,Final - Max Points
A1,A01,8,10,72:00:00,90,100
A2,A02,,10,,45.5,100

A3,A01,10,10,00:00:00,,100
`

func readTestBook(t *testing.T) *Gradebook {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(testCSV))
	require.NoError(t, err)
	g, err := New(tbl)
	require.NoError(t, err)
	return g
}

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(testCSV))
	require.NoError(t, err)
	assert.Len(t, tbl.Header, 7)
	assert.Len(t, tbl.Rows, 3, "blank lines are skipped")
	assert.Equal(t, 2, tbl.Index("lab01"))
	assert.Equal(t, -1, tbl.Index("lab02"))
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestReadCSV_ShortRowsArePadded(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("PID,Midterm\nA1\n"))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"A1", ""}, tbl.Rows[0])
}

func TestNew_MissingIDColumn(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Student,Midterm\nA1,50\n"))
	require.NoError(t, err)

	_, err = New(tbl)
	assert.ErrorIs(t, err, ErrMissingIDColumn)

	g, err := New(tbl, WithIDColumn("Student"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, g.IDs())
	assert.Equal(t, []string{""}, g.Sections())
}

func TestGradebook_Reads(t *testing.T) {
	g := readTestBook(t)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []string{"A1", "A2", "A3"}, g.IDs())
	assert.Equal(t, []string{"A01", "A02", "A01"}, g.Sections())
	assert.True(t, g.Has("Final"))
	assert.False(t, g.Has("Midterm"))
	assert.Nil(t, g.Floats("Midterm"))

	final := g.Floats("Final")
	assert.Equal(t, 90.0, final[0])
	assert.Equal(t, 45.5, final[1])
	assert.True(t, math.IsNaN(final[2]))

	assert.Equal(t, []string{"72:00:00", "", "00:00:00"}, g.Strings("lab01 - Lateness (H:M:S)"))

	mp, ok := g.First("lab01 - Max Points")
	assert.True(t, ok)
	assert.Equal(t, 10.0, mp)

	_, ok = g.First("nope")
	assert.False(t, ok)
}

func TestGradebook_WithDoesNotMutate(t *testing.T) {
	g := readTestBook(t)

	g2 := g.WithFloats("Raw Redemption Score", []float64{0.5, math.NaN(), 1})
	assert.False(t, g.Has("Raw Redemption Score"))
	assert.True(t, g2.Has("Raw Redemption Score"))
	assert.Equal(t, "Raw Redemption Score", g2.Columns()[len(g2.Columns())-1])
	assert.Equal(t, []string{"0.5", "", "1"}, g2.Strings("Raw Redemption Score"))

	g3 := g2.With("Final", []string{"1"})
	assert.Equal(t, []string{"1", "", ""}, g3.Strings("Final"))
	assert.Equal(t, 90.0, g2.Floats("Final")[0])
	assert.Equal(t, len(g2.Columns()), len(g3.Columns()))
}

func TestFillNaN(t *testing.T) {
	in := []float64{1, math.NaN(), 3}
	out := FillNaN(in, 0)
	assert.Equal(t, []float64{1, 0, 3}, out)
	assert.True(t, math.IsNaN(in[1]))
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 4.25, ParseFloat(" 4.25 "))
	assert.True(t, math.IsNaN(ParseFloat("")))
	assert.True(t, math.IsNaN(ParseFloat("n/a")))
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"PID", "Midterm", "Midterm - Max Points"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"A1", 40, 50}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"A2", nil, 50}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	tbl, err := ReadXLSX(&buf, "")
	require.NoError(t, err)
	g, err := New(tbl)
	require.NoError(t, err)

	mid := g.Floats("Midterm")
	assert.Equal(t, 40.0, mid[0])
	assert.True(t, math.IsNaN(mid[1]))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "grades.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCSV), 0o600))
	tbl, err := ReadFile(csvPath, "")
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 3)

	txtPath := filepath.Join(dir, "grades.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(testCSV), 0o600))
	_, err = ReadFile(txtPath, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)
}
