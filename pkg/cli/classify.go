package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/mchmarny/gradepulse/pkg/config"
	"github.com/mchmarny/gradepulse/pkg/grade"
	"github.com/mchmarny/gradepulse/pkg/gradebook"
	"github.com/mchmarny/gradepulse/pkg/net"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	flagGradebook = "gradebook"
	flagSheet     = "sheet"
)

func gradebookFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagGradebook,
		Aliases:  []string{"g"},
		Usage:    "Path or URL of the gradebook export (.csv or .xlsx)",
		Required: true,
	}
}

func sheetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagSheet,
		Usage: "Sheet to read from .xlsx inputs (default: first sheet)",
	}
}

func newClassifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Aliases:   []string{"c"},
		Usage:     "Show how gradebook columns map to categories and assignments",
		UsageText: "gradepulse classify --gradebook grades.csv",
		Flags: []cli.Flag{
			gradebookFlag(),
			sheetFlag(),
		},
		Action: cmdClassify,
	}
}

type classification struct {
	Source       string            `json:"source" yaml:"source"`
	Students     int               `json:"students" yaml:"students"`
	Columns      []grade.Column    `json:"columns" yaml:"columns"`
	Unclassified []string          `json:"unclassified" yaml:"unclassified"`
	Assignments  grade.Assignments `json:"assignments" yaml:"assignments"`
	Catalog      *grade.Catalog    `json:"catalog" yaml:"catalog"`
}

func cmdClassify(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	path := cmd.String(flagGradebook)
	tables, err := loadTables(ctx, cmd.String(flagSheet), path)
	if err != nil {
		return err
	}
	g, err := newGradebook(tables[0], cfg.Config.Columns)
	if err != nil {
		return err
	}

	out := &classification{
		Source:       path,
		Students:     g.Len(),
		Columns:      make([]grade.Column, 0),
		Unclassified: make([]string, 0),
		Assignments:  grade.Classify(g.Columns()),
		Catalog:      grade.BuildCatalog(g),
	}
	for _, name := range g.Columns() {
		if name == cfg.Config.Columns.ID || name == cfg.Config.Columns.Section {
			continue
		}
		c, ok := grade.ParseColumn(name)
		if !ok {
			out.Unclassified = append(out.Unclassified, name)
			continue
		}
		out.Columns = append(out.Columns, c)
	}

	slog.Debug("gradebook classified", "columns", len(out.Columns), "unclassified", len(out.Unclassified))
	return encode(cmd, out)
}

// loadTables reads every non-empty path concurrently. Paths may be http or
// https URLs. The result has one entry per path, nil for empty paths.
func loadTables(ctx context.Context, sheet string, paths ...string) ([]*gradebook.Table, error) {
	var tmp string
	if slices.ContainsFunc(paths, net.IsURL) {
		dir, err := os.MkdirTemp("", config.AppName)
		if err != nil {
			return nil, fmt.Errorf("creating download dir: %w", err)
		}
		defer os.RemoveAll(dir)
		tmp = dir
	}

	tables := make([]*gradebook.Table, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		if p == "" {
			continue
		}
		g.Go(func() error {
			local := p
			if net.IsURL(p) {
				f, err := net.DownloadTemp(gctx, p, tmp)
				if err != nil {
					return err
				}
				slog.Debug("file downloaded", "url", p, "path", f)
				local = f
			}
			t, err := gradebook.ReadFile(local, sheet)
			if err != nil {
				return fmt.Errorf("reading %s: %w", p, err)
			}
			slog.Debug("file loaded", "path", p, "rows", len(t.Rows), "columns", len(t.Header))
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

func newGradebook(t *gradebook.Table, cols config.Columns) (*gradebook.Gradebook, error) {
	g, err := gradebook.New(t,
		gradebook.WithIDColumn(cols.ID),
		gradebook.WithSectionColumn(cols.Section),
	)
	if err != nil {
		return nil, fmt.Errorf("building gradebook: %w", err)
	}
	return g, nil
}
