package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mchmarny/gradepulse/pkg/data"
	"github.com/mchmarny/gradepulse/pkg/grade"
	"github.com/mchmarny/gradepulse/pkg/report"
	"github.com/urfave/cli/v3"
)

const (
	flagBreakdown = "breakdown"
	flagQuestion  = "question"
	flagThreshold = "threshold"
	flagMinCount  = "min-count"
	flagXLSX      = "xlsx"
	flagSave      = "save"
	flagStudents  = "students"

	xlsxFileMode = 0o600
)

var errNoQuestions = errors.New("redemption questions required with --breakdown (use --question or the config file)")

func newReportCmd() *cli.Command {
	return &cli.Command{
		Name:    "report",
		Aliases: []string{"r"},
		Usage:   "Compute grades, apply midterm redemption and print section reports",
		UsageText: `gradepulse report --gradebook grades.csv                                              # grades without redemption
   gradepulse report -g grades.csv --breakdown final.csv --question 3 --question 4      # with redemption questions
   gradepulse report -g grades.csv --breakdown final.csv --xlsx report.xlsx --save      # export and keep history`,
		Flags: []cli.Flag{
			gradebookFlag(),
			sheetFlag(),
			&cli.StringFlag{
				Name:    flagBreakdown,
				Aliases: []string{"b"},
				Usage:   "Path or URL of the final exam question breakdown (.csv or .xlsx)",
			},
			&cli.IntSliceFlag{
				Name:    flagQuestion,
				Aliases: []string{"q"},
				Usage:   "Column position of a redemption question in the breakdown, id column is 0 (can be specified multiple times)",
			},
			&cli.FloatFlag{
				Name:  flagThreshold,
				Usage: "Redemption score threshold for the top sections view",
			},
			&cli.IntFlag{
				Name:  flagMinCount,
				Usage: "Minimum students at or above the threshold for a section to count",
			},
			&cli.StringFlag{
				Name:  flagXLSX,
				Usage: "Also write the report to this .xlsx file",
			},
			&cli.BoolFlag{
				Name:  flagSave,
				Usage: "Save the run to the database",
			},
			&cli.BoolFlag{
				Name:  flagStudents,
				Usage: "Include per-student grades in the output",
			},
		},
		Action: cmdReport,
	}
}

type reportOutput struct {
	Run      string          `json:"run,omitempty" yaml:"run,omitempty"`
	Summary  *report.Summary `json:"summary" yaml:"summary"`
	Students []grade.Student `json:"students,omitempty" yaml:"students,omitempty"`
}

func cmdReport(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	c := cfg.Config

	gradebookPath := cmd.String(flagGradebook)
	breakdownPath := cmd.String(flagBreakdown)

	questions := c.Redemption.Questions
	if cmd.IsSet(flagQuestion) {
		questions = cmd.IntSlice(flagQuestion)
	}
	if breakdownPath != "" && len(questions) == 0 {
		return errNoQuestions
	}

	tables, err := loadTables(ctx, cmd.String(flagSheet), gradebookPath, breakdownPath)
	if err != nil {
		return err
	}
	g, err := newGradebook(tables[0], c.Columns)
	if err != nil {
		return err
	}

	var redemption map[string]float64
	if tables[1] != nil {
		if redemption, err = grade.RawRedemption(tables[1], c.Columns.ID, questions); err != nil {
			return fmt.Errorf("scoring redemption: %w", err)
		}
	} else {
		slog.Debug("no breakdown, midterms are not redeemed")
	}

	res, err := grade.Run(g, redemption, c.Policy)
	if err != nil {
		return fmt.Errorf("computing grades: %w", err)
	}

	opts := report.Options{
		Sections:  c.Sections.Resolve(),
		Threshold: c.Redemption.Threshold,
		MinCount:  c.Redemption.MinCount,
	}
	if cmd.IsSet(flagThreshold) {
		opts.Threshold = cmd.Float(flagThreshold)
	}
	if cmd.IsSet(flagMinCount) {
		opts.MinCount = cmd.Int(flagMinCount)
	}
	summary := report.Build(res, opts)

	if p := cmd.String(flagXLSX); p != "" {
		if err := exportXLSX(p, summary, res); err != nil {
			return err
		}
		slog.Info("report exported", "path", p)
	}

	out := &reportOutput{Summary: summary}
	if cmd.Bool(flagStudents) {
		out.Students = res.Students
	}

	if cmd.Bool(flagSave) {
		run := data.NewRun(gradebookPath, res, summary)
		if err := data.SaveRun(cfg.DB, run); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		out.Run = run.ID
		slog.Info("run saved", "id", run.ID, "students", run.Students)
	}

	return encode(cmd, out)
}

func exportXLSX(path string, s *report.Summary, res *grade.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, xlsxFileMode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := report.WriteXLSX(f, s, res); err != nil {
		f.Close()
		return fmt.Errorf("exporting %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
