package report

import (
	"fmt"
	"io"

	"github.com/mchmarny/gradepulse/pkg/grade"
	"github.com/xuri/excelize/v2"
)

const (
	SheetStudents = "Students"
	SheetLetters  = "Letters"
	SheetRanking  = "Ranking"
	SheetHeatmap  = "Heatmap"

	heatmapMinColor = "#F7FBFF"
	heatmapMaxColor = "#08306B"
)

// WriteXLSX writes the students and every view to an XLSX workbook. The
// heat map sheet shades the letter matrix on a white to dark blue scale.
func WriteXLSX(w io.Writer, s *Summary, res *grade.Result) error {
	if s == nil || res == nil {
		return fmt.Errorf("nothing to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetStudents); err != nil {
		return fmt.Errorf("error naming sheet: %w", err)
	}
	for _, name := range []string{SheetLetters, SheetRanking, SheetHeatmap} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("error creating sheet %s: %w", name, err)
		}
	}

	if err := writeStudents(f, res.Students); err != nil {
		return err
	}
	if err := writeLetters(f, s); err != nil {
		return err
	}
	if err := writeRanking(f, s.Ranking); err != nil {
		return err
	}
	if err := writeHeatmap(f, s.Heatmap); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("error resolving cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("error writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeStudents(f *excelize.File, students []grade.Student) error {
	header := []any{"ID", "Section"}
	for _, c := range grade.Categories {
		header = append(header, string(c))
	}
	header = append(header, "Redemption", "Midterm Pre", "Midterm Post",
		"Total Pre", "Total Post", "Letter Pre", "Letter Post")
	if err := setRow(f, SheetStudents, 1, header); err != nil {
		return err
	}

	for i, s := range students {
		row := []any{s.ID, s.Section}
		for _, c := range grade.Categories {
			row = append(row, s.Scores[c])
		}
		row = append(row, s.Redemption, s.MidtermPre, s.MidtermPost,
			s.PreTotal, s.PostTotal, string(s.PreLetter), string(s.PostLetter))
		if err := setRow(f, SheetStudents, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeLetters(f *excelize.File, s *Summary) error {
	if err := setRow(f, SheetLetters, 1, []any{"Phase", "Letter", "Count", "Proportion"}); err != nil {
		return err
	}
	row := 2
	for _, phase := range []struct {
		name   string
		shares []grade.LetterShare
	}{
		{"pre", s.LettersPre},
		{"post", s.LettersPost},
	} {
		for _, ls := range phase.shares {
			if err := setRow(f, SheetLetters, row, []any{phase.name, string(ls.Letter), ls.Count, ls.Proportion}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeRanking(f *excelize.File, g Grid) error {
	header := []any{"Rank"}
	for _, sec := range g.Sections {
		header = append(header, sec)
	}
	if err := setRow(f, SheetRanking, 1, header); err != nil {
		return err
	}
	for i, ids := range g.Rows {
		row := []any{i + 1}
		for _, id := range ids {
			row = append(row, id)
		}
		if err := setRow(f, SheetRanking, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeHeatmap(f *excelize.File, m Matrix) error {
	header := []any{"Letter"}
	for _, sec := range m.Sections {
		header = append(header, sec)
	}
	if err := setRow(f, SheetHeatmap, 1, header); err != nil {
		return err
	}
	for i, l := range m.Letters {
		row := []any{string(l)}
		for _, v := range m.Values[i] {
			row = append(row, v)
		}
		if err := setRow(f, SheetHeatmap, i+2, row); err != nil {
			return err
		}
	}

	if len(m.Sections) == 0 || len(m.Letters) == 0 {
		return nil
	}
	topLeft, err := excelize.CoordinatesToCellName(2, 2)
	if err != nil {
		return fmt.Errorf("error resolving cell: %w", err)
	}
	bottomRight, err := excelize.CoordinatesToCellName(len(m.Sections)+1, len(m.Letters)+1)
	if err != nil {
		return fmt.Errorf("error resolving cell: %w", err)
	}
	err = f.SetConditionalFormat(SheetHeatmap, topLeft+":"+bottomRight, []excelize.ConditionalFormatOptions{{
		Type:     "2_color_scale",
		Criteria: "=",
		MinType:  "min",
		MaxType:  "max",
		MinColor: heatmapMinColor,
		MaxColor: heatmapMaxColor,
	}})
	if err != nil {
		return fmt.Errorf("error shading heat map: %w", err)
	}
	return nil
}
