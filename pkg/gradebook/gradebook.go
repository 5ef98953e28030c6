package gradebook

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultIDColumn      = "PID"
	DefaultSectionColumn = "Section"
)

// ErrMissingIDColumn is returned when the student id column is not in the header.
var ErrMissingIDColumn = errors.New("student id column not found")

// Gradebook is a read-only, column oriented view over a table keyed by
// student id. Numeric reads return NaN for blank or unparseable cells.
type Gradebook struct {
	columns  []string
	cells    map[string][]string
	ids      []string
	sections []string
}

type options struct {
	idColumn      string
	sectionColumn string
}

// Option configures how a table is turned into a Gradebook.
type Option func(*options)

// WithIDColumn sets the student id column name.
func WithIDColumn(name string) Option { return func(o *options) { o.idColumn = name } }

// WithSectionColumn sets the section column name. The column is optional.
func WithSectionColumn(name string) Option { return func(o *options) { o.sectionColumn = name } }

// New builds a Gradebook from a table. The table is copied.
func New(t *Table, opts ...Option) (*Gradebook, error) {
	if t == nil || len(t.Header) == 0 {
		return nil, ErrEmptyTable
	}

	o := &options{
		idColumn:      DefaultIDColumn,
		sectionColumn: DefaultSectionColumn,
	}
	for _, opt := range opts {
		opt(o)
	}

	idIdx := t.Index(o.idColumn)
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingIDColumn, o.idColumn)
	}

	g := &Gradebook{
		columns: slices.Clone(t.Header),
		cells:   make(map[string][]string, len(t.Header)),
	}

	for ci, name := range t.Header {
		if _, dup := g.cells[name]; dup {
			continue
		}
		col := make([]string, len(t.Rows))
		for ri, row := range t.Rows {
			if ci < len(row) {
				col[ri] = strings.TrimSpace(row[ci])
			}
		}
		g.cells[name] = col
	}

	g.ids = g.cells[o.idColumn]
	if sec, ok := g.cells[o.sectionColumn]; ok {
		g.sections = sec
	} else {
		g.sections = make([]string, len(t.Rows))
	}

	return g, nil
}

// Len returns the number of students.
func (g *Gradebook) Len() int { return len(g.ids) }

// Columns returns the header in file order.
func (g *Gradebook) Columns() []string { return slices.Clone(g.columns) }

// IDs returns the student ids in row order.
func (g *Gradebook) IDs() []string { return slices.Clone(g.ids) }

// Sections returns the section of each student, empty when the gradebook has
// no section column.
func (g *Gradebook) Sections() []string { return slices.Clone(g.sections) }

// Has reports whether the column exists.
func (g *Gradebook) Has(column string) bool {
	_, ok := g.cells[column]
	return ok
}

// Strings returns a copy of the column, or nil when it does not exist.
func (g *Gradebook) Strings(column string) []string {
	col, ok := g.cells[column]
	if !ok {
		return nil
	}
	return slices.Clone(col)
}

// Floats parses the column as numbers. Blank and unparseable cells are NaN.
// A missing column returns nil.
func (g *Gradebook) Floats(column string) []float64 {
	col, ok := g.cells[column]
	if !ok {
		return nil
	}
	out := make([]float64, len(col))
	for i, v := range col {
		out[i] = ParseFloat(v)
	}
	return out
}

// First returns the first non-NaN numeric value in the column.
func (g *Gradebook) First(column string) (float64, bool) {
	for _, v := range g.Floats(column) {
		if !math.IsNaN(v) {
			return v, true
		}
	}
	return 0, false
}

// With returns a copy of the gradebook with the column added or replaced.
// Values are aligned to student order; missing trailing values are blank.
func (g *Gradebook) With(column string, values []string) *Gradebook {
	c := &Gradebook{
		columns:  slices.Clone(g.columns),
		cells:    make(map[string][]string, len(g.cells)+1),
		ids:      g.ids,
		sections: g.sections,
	}
	for k, v := range g.cells {
		c.cells[k] = v
	}

	col := make([]string, g.Len())
	copy(col, values)
	if _, exists := c.cells[column]; !exists {
		c.columns = append(c.columns, column)
	}
	c.cells[column] = col
	return c
}

// WithFloats is With for numeric columns. NaN values become blank cells.
func (g *Gradebook) WithFloats(column string, values []float64) *Gradebook {
	s := make([]string, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			s[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return g.With(column, s)
}

// ParseFloat parses a spreadsheet cell. Blank, "NaN" and malformed values
// yield NaN.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FillNaN returns a copy of values with NaN replaced by fill.
func FillNaN(values []float64, fill float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out
}
