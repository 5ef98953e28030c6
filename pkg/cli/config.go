package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mchmarny/gradepulse/pkg/config"
	"github.com/urfave/cli/v3"
)

const flagForce = "force"

func newConfigCmd() *cli.Command {
	return &cli.Command{
		Name:            "config",
		Usage:           "Manage the grading policy config file",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagForce,
						Usage: "Overwrite an existing config file",
					},
				},
				Action: cmdConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective config (file plus environment overrides)",
				Action: cmdConfigShow,
			},
		},
	}
}

func cmdConfigInit(_ context.Context, cmd *cli.Command) error {
	path := getConfig(cmd).ConfigPath

	if _, err := os.Stat(path); err == nil && !cmd.Bool(flagForce) {
		return fmt.Errorf("config file %s already exists (use --%s to overwrite)", path, flagForce)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	slog.Info("config written", "path", path)
	return nil
}

func cmdConfigShow(_ context.Context, cmd *cli.Command) error {
	return encode(cmd, getConfig(cmd).Config)
}
