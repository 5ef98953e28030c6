package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/gradepulse/pkg/data"
	"github.com/urfave/cli/v3"
)

const (
	flagLimit = "limit"
	flagID    = "id"
	flagPID   = "pid"

	historyLimitDefault = 20
)

func runIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagID,
		Usage:    "Run id",
		Required: true,
	}
}

func newHistoryCmd() *cli.Command {
	return &cli.Command{
		Name:            "history",
		Aliases:         []string{"h"},
		Usage:           "Browse saved grading runs",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagLimit,
						Usage: fmt.Sprintf("Number of runs to list (default: %d)", historyLimitDefault),
						Value: historyLimitDefault,
					},
				},
				Action: cmdHistoryList,
			},
			{
				Name:   "show",
				Usage:  "Show a saved run with its summary and students",
				Flags:  []cli.Flag{runIDFlag()},
				Action: cmdHistoryShow,
			},
			{
				Name:  "student",
				Usage: "Show a student's grades across saved runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagPID,
						Usage:    "Student id",
						Required: true,
					},
				},
				Action: cmdHistoryStudent,
			},
			{
				Name:   "delete",
				Usage:  "Delete a saved run",
				Flags:  []cli.Flag{runIDFlag()},
				Action: cmdHistoryDelete,
			},
			{
				Name:   "state",
				Usage:  "Show database row counts",
				Action: cmdHistoryState,
			},
		},
	}
}

func cmdHistoryList(_ context.Context, cmd *cli.Command) error {
	list, err := data.ListRuns(getConfig(cmd).DB, cmd.Int(flagLimit))
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	return encode(cmd, list)
}

func cmdHistoryShow(_ context.Context, cmd *cli.Command) error {
	run, err := data.GetRun(getConfig(cmd).DB, cmd.String(flagID))
	if err != nil {
		return fmt.Errorf("getting run: %w", err)
	}
	return encode(cmd, run)
}

func cmdHistoryStudent(_ context.Context, cmd *cli.Command) error {
	list, err := data.GetStudentHistory(getConfig(cmd).DB, cmd.String(flagPID))
	if err != nil {
		return fmt.Errorf("getting student history: %w", err)
	}
	return encode(cmd, list)
}

func cmdHistoryDelete(_ context.Context, cmd *cli.Command) error {
	id := cmd.String(flagID)
	if err := data.DeleteRun(getConfig(cmd).DB, id); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	slog.Info("run deleted", "id", id)
	return nil
}

func cmdHistoryState(_ context.Context, cmd *cli.Command) error {
	state, err := data.GetDataState(getConfig(cmd).DB)
	if err != nil {
		return fmt.Errorf("getting data state: %w", err)
	}
	return encode(cmd, state)
}
