// Package report derives read-only views from computed grades: redemption
// improvement rates, section rankings and the letter distribution per section.
package report

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mchmarny/gradepulse/pkg/grade"
)

// ProportionImproved is the share of students whose letter changed after
// redemption. Zero for an empty class.
func ProportionImproved(students []grade.Student) float64 {
	if len(students) == 0 {
		return 0
	}
	var n int
	for _, s := range students {
		if s.Improved() {
			n++
		}
	}
	return float64(n) / float64(len(students))
}

// SectionRate is the redemption improvement rate of one section.
type SectionRate struct {
	Section  string  `json:"section" yaml:"section"`
	Students int     `json:"students" yaml:"students"`
	Improved int     `json:"improved" yaml:"improved"`
	Rate     float64 `json:"rate" yaml:"rate"`
}

// SectionImprovement returns the improvement rate of every section, ordered
// by section.
func SectionImprovement(students []grade.Student) []SectionRate {
	bySection := make(map[string]*SectionRate)
	for _, s := range students {
		r, ok := bySection[s.Section]
		if !ok {
			r = &SectionRate{Section: s.Section}
			bySection[s.Section] = r
		}
		r.Students++
		if s.Improved() {
			r.Improved++
		}
	}

	out := make([]SectionRate, 0, len(bySection))
	for _, r := range bySection {
		r.Rate = float64(r.Improved) / float64(r.Students)
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b SectionRate) int { return cmp.Compare(a.Section, b.Section) })
	return out
}

// SectionMostImproved returns the section with the highest improvement rate.
// Ties go to the section that sorts first. Empty when there are no students.
func SectionMostImproved(students []grade.Student) string {
	var best *SectionRate
	rates := SectionImprovement(students)
	for i := range rates {
		if best == nil || rates[i].Rate > best.Rate {
			best = &rates[i]
		}
	}
	if best == nil {
		return ""
	}
	return best.Section
}

// TopSections returns, in order, the sections where at least minCount
// students have a raw redemption score of threshold or more.
func TopSections(students []grade.Student, threshold float64, minCount int) []string {
	counts := make(map[string]int)
	for _, s := range students {
		if _, ok := counts[s.Section]; !ok {
			counts[s.Section] = 0
		}
		if s.Redemption >= threshold {
			counts[s.Section]++
		}
	}

	out := make([]string, 0)
	for section, n := range counts {
		if n >= minCount {
			out = append(out, section)
		}
	}
	slices.Sort(out)
	return out
}

// SectionRange returns prefix followed by 01..n, e.g. A01..A30.
func SectionRange(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%s%02d", prefix, i))
	}
	return out
}

// Sections returns the distinct sections of the class in order.
func Sections(students []grade.Student) []string {
	out := make([]string, 0)
	for _, s := range students {
		if !slices.Contains(out, s.Section) {
			out = append(out, s.Section)
		}
	}
	slices.Sort(out)
	return out
}

// Grid is a rank by section table of student ids. Rows[i][j] is the id ranked
// i+1 in Sections[j], or "" when that section is shorter.
type Grid struct {
	Sections []string   `json:"sections" yaml:"sections"`
	Rows     [][]string `json:"rows" yaml:"rows"`
}

// Column returns the ids of one section from top rank down, padding included.
func (g Grid) Column(section string) []string {
	j := slices.Index(g.Sections, section)
	if j < 0 {
		return nil
	}
	out := make([]string, len(g.Rows))
	for i, row := range g.Rows {
		out[i] = row[j]
	}
	return out
}

// RankBySection ranks students within each section by post-redemption total,
// highest first, ties broken by id. When sections is empty the observed
// sections are used; students outside the listed sections are left out.
func RankBySection(students []grade.Student, sections []string) Grid {
	if len(sections) == 0 {
		sections = Sections(students)
	}

	ranked := slices.Clone(students)
	slices.SortFunc(ranked, func(a, b grade.Student) int {
		if c := cmp.Compare(b.PostTotal, a.PostTotal); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	columns := make([][]string, len(sections))
	depth := 0
	for j, section := range sections {
		for _, s := range ranked {
			if s.Section == section {
				columns[j] = append(columns[j], s.ID)
			}
		}
		depth = max(depth, len(columns[j]))
	}

	rows := make([][]string, depth)
	for i := range rows {
		rows[i] = make([]string, len(sections))
		for j := range sections {
			if i < len(columns[j]) {
				rows[i][j] = columns[j][i]
			}
		}
	}
	return Grid{Sections: slices.Clone(sections), Rows: rows}
}

// Matrix is the post-redemption letter distribution per section. Values[i][j]
// is the share of Sections[j] that received Letters[i].
type Matrix struct {
	Letters  []grade.Letter `json:"letters" yaml:"letters"`
	Sections []string       `json:"sections" yaml:"sections"`
	Values   [][]float64    `json:"values" yaml:"values"`
}

// Value returns the share of a section that received a letter.
func (m Matrix) Value(l grade.Letter, section string) float64 {
	i, j := slices.Index(m.Letters, l), slices.Index(m.Sections, section)
	if i < 0 || j < 0 {
		return 0
	}
	return m.Values[i][j]
}

// LetterMatrix cross tabulates post-redemption letters by section and
// normalizes each section column to sum to one. Sections with no students
// are all zero.
func LetterMatrix(students []grade.Student, sections []string) Matrix {
	if len(sections) == 0 {
		sections = Sections(students)
	}

	m := Matrix{
		Letters:  slices.Clone(grade.Letters),
		Sections: slices.Clone(sections),
		Values:   make([][]float64, len(grade.Letters)),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(sections))
	}

	totals := make([]int, len(sections))
	for _, s := range students {
		i, j := slices.Index(m.Letters, s.PostLetter), slices.Index(m.Sections, s.Section)
		if i < 0 || j < 0 {
			continue
		}
		m.Values[i][j]++
		totals[j]++
	}

	for j, n := range totals {
		if n == 0 {
			continue
		}
		for i := range m.Values {
			m.Values[i][j] /= float64(n)
		}
	}
	return m
}
