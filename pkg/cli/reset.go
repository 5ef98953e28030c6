package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/gradepulse/pkg/data"
	"github.com/urfave/cli/v3"
)

const flagYes = "yes"

func newResetCmd() *cli.Command {
	return &cli.Command{
		Name:            "reset",
		Usage:           "Delete all saved runs and start fresh",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagYes,
				Usage: "Skip the confirmation prompt",
			},
		},
		Action: cmdReset,
	}
}

func cmdReset(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	w := writer(cmd)

	if !cmd.Bool(flagYes) {
		fmt.Fprintf(w, "This will permanently delete all data in %s\n", cfg.DBPath)
		fmt.Fprint(w, "Are you sure? [y/N]: ")

		var in io.Reader = os.Stdin
		if r := cmd.Root().Reader; r != nil {
			in = r
		}
		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	if data.IsPostgres(cfg.DBPath) {
		if err := data.DeleteAll(cfg.DB); err != nil {
			return fmt.Errorf("deleting data: %w", err)
		}
		slog.Info("database cleared")
		fmt.Fprintln(w, "Reset complete.")
		return nil
	}

	// close the DB before deleting the file
	if cfg.DB != nil {
		cfg.DB.Close()
		cfg.DB = nil
	}

	if err := os.Remove(cfg.DBPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting database: %w", err)
	}
	slog.Info("database deleted", "path", cfg.DBPath)

	if err := data.Init(cfg.DBPath); err != nil {
		return fmt.Errorf("re-initializing database: %w", err)
	}
	slog.Info("database re-initialized", "path", cfg.DBPath)

	fmt.Fprintln(w, "Reset complete.")
	return nil
}
