package report

import (
	"github.com/mchmarny/gradepulse/pkg/grade"
)

const (
	DefaultThreshold = 0.85
	DefaultMinCount  = 3
)

// Options tunes the views that take parameters.
type Options struct {
	// Sections fixes the section columns of the ranking and the heat map.
	// Empty means the sections present in the gradebook.
	Sections  []string
	Threshold float64
	MinCount  int
}

// Summary bundles every view of one grading run.
type Summary struct {
	Students           int                 `json:"students" yaml:"students"`
	ProportionImproved float64             `json:"proportion_improved" yaml:"proportionImproved"`
	LettersPre         []grade.LetterShare `json:"letters_pre" yaml:"lettersPre"`
	LettersPost        []grade.LetterShare `json:"letters_post" yaml:"lettersPost"`
	Sections           []SectionRate       `json:"sections" yaml:"sections"`
	MostImproved       string              `json:"most_improved" yaml:"mostImproved"`
	Threshold          float64             `json:"threshold" yaml:"threshold"`
	MinCount           int                 `json:"min_count" yaml:"minCount"`
	TopSections        []string            `json:"top_sections" yaml:"topSections"`
	Ranking            Grid                `json:"ranking" yaml:"ranking"`
	Heatmap            Matrix              `json:"heatmap" yaml:"heatmap"`
}

// Build computes every view of a result.
func Build(res *grade.Result, opts Options) *Summary {
	if res == nil {
		res = &grade.Result{}
	}
	st := res.Students
	return &Summary{
		Students:           len(st),
		ProportionImproved: ProportionImproved(st),
		LettersPre:         grade.LetterProportions(res.PreLetters()),
		LettersPost:        grade.LetterProportions(res.PostLetters()),
		Sections:           SectionImprovement(st),
		MostImproved:       SectionMostImproved(st),
		Threshold:          opts.Threshold,
		MinCount:           opts.MinCount,
		TopSections:        TopSections(st, opts.Threshold, opts.MinCount),
		Ranking:            RankBySection(st, opts.Sections),
		Heatmap:            LetterMatrix(st, opts.Sections),
	}
}
