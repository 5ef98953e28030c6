package grade

import (
	"log/slog"

	"github.com/mchmarny/gradepulse/pkg/gradebook"
)

// Component is one score column of an assignment with its metadata resolved.
type Component struct {
	Column    string  `json:"column" yaml:"column"`
	MaxPoints float64 `json:"max_points" yaml:"max_points"`
	HasMax    bool    `json:"has_max" yaml:"has_max"`
	Lateness  string  `json:"lateness,omitempty" yaml:"lateness,omitempty"`
}

// Assignment is one logical piece of coursework made of one or more components
// sharing a base id.
type Assignment struct {
	ID         string       `json:"id" yaml:"id"`
	Category   Category     `json:"category" yaml:"category"`
	Components []*Component `json:"components" yaml:"components"`
}

// MaxPoints is the summed max points of the components that declare one.
func (a *Assignment) MaxPoints() float64 {
	var total float64
	for _, c := range a.Components {
		if c.HasMax {
			total += c.MaxPoints
		}
	}
	return total
}

// Catalog holds the assignments of a gradebook grouped by category, in the
// order their first component appears in the header. It is built once and
// read by every later stage.
type Catalog struct {
	Assignments map[Category][]*Assignment `json:"assignments" yaml:"assignments"`
}

// Get returns the assignments of a category.
func (c *Catalog) Get(cat Category) []*Assignment {
	if c == nil {
		return nil
	}
	return c.Assignments[cat]
}

// Count returns the number of assignments across categories.
func (c *Catalog) Count() int {
	n := 0
	for _, list := range c.Assignments {
		n += len(list)
	}
	return n
}

// BuildCatalog parses the gradebook header and resolves each score column's
// max points (from the first row carrying a value) and lateness column.
func BuildCatalog(g *gradebook.Gradebook) *Catalog {
	cat := &Catalog{Assignments: make(map[Category][]*Assignment, len(Categories))}
	index := make(map[Category]map[string]*Assignment, len(Categories))

	classified := Classify(g.Columns())
	for _, category := range Categories {
		index[category] = make(map[string]*Assignment)
		for _, name := range classified[category] {
			col, _ := ParseColumn(name)

			a, ok := index[category][col.BaseID]
			if !ok {
				a = &Assignment{ID: col.BaseID, Category: category}
				index[category][col.BaseID] = a
				cat.Assignments[category] = append(cat.Assignments[category], a)
			}

			comp := &Component{Column: name}
			if mp, ok := g.First(MaxPointsColumn(name)); ok {
				comp.MaxPoints = mp
				comp.HasMax = true
			} else {
				slog.Debug("max points not found", "column", name)
			}
			if lc := LatenessColumn(name); g.Has(lc) {
				comp.Lateness = lc
			}
			a.Components = append(a.Components, comp)
		}
	}

	return cat
}
