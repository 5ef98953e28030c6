// Package cli implements the gradepulse command line.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/gradepulse/pkg/config"
	"github.com/mchmarny/gradepulse/pkg/data"
	"github.com/mchmarny/gradepulse/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"

	flagDebug  = "debug"
	flagDB     = "db"
	flagFormat = "format"
	flagConfig = "config"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	ConfigPath string
	DBPath     string
	Format     string
	Debug      bool
	Config     *config.Config
	DB         *sql.DB
}

func getConfig(cmd *cli.Command) *appConfig {
	cfg, _ := cmd.Root().Metadata[appConfigKey].(*appConfig)
	return cfg
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  config.AppName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Course grade calculator with midterm redemption and section reports",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&cli.StringFlag{
				Name:    flagDB,
				Usage:   "Path to the SQLite database file or a postgres:// DSN (default: $HOME/.gradepulse/data.db)",
				Sources: cli.EnvVars(config.EnvPrefix + "_DB"),
			},
			&cli.StringFlag{
				Name:  flagFormat,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
			&cli.StringFlag{
				Name:  flagConfig,
				Usage: "Path to the config file (default: $HOME/.gradepulse/config.yaml)",
			},
		},
		Commands: []*cli.Command{
			newClassifyCmd(),
			newReportCmd(),
			newHistoryCmd(),
			newConfigCmd(),
			newResetCmd(),
		},
		Before: before,
		After:  after,
	}
}

func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	home := getHomeDir()

	cfgPath := cmd.String(flagConfig)
	if cfgPath == "" {
		cfgPath = filepath.Join(home, config.ConfigFileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return ctx, fmt.Errorf("loading config: %w", err)
	}

	debug := cmd.Bool(flagDebug)
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)

	format := formatJSON
	if f := cmd.String(flagFormat); f == formatYAML || f == "yml" {
		format = formatYAML
	}

	dbPath := cmd.String(flagDB)
	if dbPath == "" {
		dbPath = cfg.DB
	}
	if dbPath == "" {
		dbPath = filepath.Join(home, data.DataFileName)
	}

	if err := data.Init(dbPath); err != nil {
		return ctx, fmt.Errorf("initializing database: %w", err)
	}
	db, err := data.GetDB(dbPath)
	if err != nil {
		return ctx, fmt.Errorf("opening database: %w", err)
	}

	cmd.Metadata[appConfigKey] = &appConfig{
		ConfigPath: cfgPath,
		DBPath:     dbPath,
		Format:     format,
		Debug:      debug,
		Config:     cfg,
		DB:         db,
	}
	return ctx, nil
}

func after(_ context.Context, cmd *cli.Command) error {
	if cfg := getConfig(cmd); cfg != nil && cfg.DB != nil {
		cfg.DB.Close()
	}
	return nil
}

func getHomeDir() string {
	dir, _, err := config.GetOrCreateHomeDir(config.AppName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	return dir
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func encode(cmd *cli.Command, v any) error {
	w := writer(cmd)
	if cfg := getConfig(cmd); cfg != nil && cfg.Format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
