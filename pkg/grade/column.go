// Package grade computes course grades from a gradebook: it classifies
// assignment columns, normalizes and penalizes scores, aggregates them with
// category weights, maps totals to letters and applies midterm redemption.
package grade

import (
	"log/slog"
	"regexp"
	"strings"
)

// Category is the kind of coursework a column belongs to.
type Category string

const (
	Lab        Category = "lab"
	Project    Category = "project"
	Midterm    Category = "midterm"
	Final      Category = "final"
	Discussion Category = "disc"
	Checkpoint Category = "checkpoint"
)

// Categories lists every category in reporting order.
var Categories = []Category{Lab, Project, Midterm, Final, Discussion, Checkpoint}

// Kind tells score columns apart from the metadata columns that describe them.
type Kind string

const (
	KindScore     Kind = "score"
	KindMaxPoints Kind = "max_points"
	KindLateness  Kind = "lateness"
)

const (
	maxPointsMarker = "Max Points"
	latenessMarker  = "Lateness"

	maxPointsSuffix = " - Max Points"
	latenessSuffix  = " - Lateness (H:M:S)"

	midtermColumn     = "Midterm"
	finalColumn       = "Final"
	projectPrefix     = "project"
	checkpointMarker  = "checkpoint"
	componentSplitter = "_"
)

var (
	labPattern        = regexp.MustCompile(`^lab\d\d$`)
	discussionPattern = regexp.MustCompile(`^discussion\d\d$`)
)

// Column is a column name parsed once into its structured parts.
//
// Score columns carry a Category, the BaseID of the logical assignment they
// are part of and a Component suffix ("" for the primary column). Metadata
// columns carry the score column they describe in Source.
type Column struct {
	Name      string   `json:"name" yaml:"name"`
	Kind      Kind     `json:"kind" yaml:"kind"`
	Category  Category `json:"category,omitempty" yaml:"category,omitempty"`
	BaseID    string   `json:"base_id,omitempty" yaml:"base_id,omitempty"`
	Component string   `json:"component,omitempty" yaml:"component,omitempty"`
	Source    string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// MaxPointsColumn returns the name of the max points column for a score column.
func MaxPointsColumn(name string) string { return name + maxPointsSuffix }

// LatenessColumn returns the name of the lateness column for a score column.
func LatenessColumn(name string) string { return name + latenessSuffix }

// ParseColumn classifies a single column name. It returns false for columns
// that are neither scorable assignments nor their metadata.
func ParseColumn(name string) (Column, bool) {
	if strings.Contains(name, maxPointsMarker) || strings.Contains(name, latenessMarker) {
		c := Column{Name: name, Kind: KindLateness}
		if strings.Contains(name, maxPointsMarker) {
			c.Kind = KindMaxPoints
		}
		if i := strings.Index(name, " - "); i > 0 {
			c.Source = name[:i]
		}
		return c, true
	}

	cat, ok := categoryOf(name)
	if !ok {
		return Column{}, false
	}

	c := Column{Name: name, Kind: KindScore, Category: cat, BaseID: name}
	if cat == Project {
		if i := strings.Index(name, componentSplitter); i > 0 {
			c.BaseID = name[:i]
			c.Component = name[i+1:]
		}
	}
	return c, true
}

// categoryOf applies the classification rules in priority order; first match wins.
func categoryOf(name string) (Category, bool) {
	switch {
	case labPattern.MatchString(name):
		return Lab, true
	case discussionPattern.MatchString(name):
		return Discussion, true
	case strings.Contains(name, checkpointMarker):
		return Checkpoint, true
	case strings.HasPrefix(name, projectPrefix):
		return Project, true
	case name == midtermColumn:
		return Midterm, true
	case name == finalColumn:
		return Final, true
	}
	return "", false
}

// Assignments maps each category to its score columns in encounter order.
type Assignments map[Category][]string

// Classify groups score column names by category. Metadata columns and
// unrecognized names are left out of every category.
func Classify(columns []string) Assignments {
	out := make(Assignments, len(Categories))
	for _, c := range Categories {
		out[c] = []string{}
	}

	for _, name := range columns {
		col, ok := ParseColumn(name)
		if !ok {
			slog.Debug("column not classified", "column", name)
			continue
		}
		if col.Kind != KindScore {
			continue
		}
		out[col.Category] = append(out[col.Category], name)
	}
	return out
}
