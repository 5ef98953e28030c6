// Package config loads the grading policy and tool settings from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/mchmarny/gradepulse/pkg/grade"
	"github.com/mchmarny/gradepulse/pkg/gradebook"
	"github.com/mchmarny/gradepulse/pkg/report"
	"gopkg.in/yaml.v3"
)

const (
	AppName        = "gradepulse"
	EnvPrefix      = "GRADEPULSE"
	ConfigFileName = "config.yaml"

	dirMode  = 0o700
	fileMode = 0o600
)

var validate = validator.New()

// Config is the tool configuration.
type Config struct {
	Policy     grade.Policy `json:"policy" yaml:"policy"`
	Columns    Columns      `json:"columns" yaml:"columns"`
	Sections   Sections     `json:"sections" yaml:"sections"`
	Redemption Redemption   `json:"redemption" yaml:"redemption"`
	LogLevel   string       `json:"log_level" yaml:"logLevel" split_words:"true" validate:"omitempty,oneof=debug info warn warning error"`
	DB         string       `json:"db,omitempty" yaml:"db,omitempty"`
}

// Columns names the gradebook columns that are not assignments.
type Columns struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Section string `json:"section" yaml:"section"`
}

// Sections fixes the section columns of the ranking and heat map. List wins
// over Prefix and Count; all empty means the sections found in the gradebook.
type Sections struct {
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Count  int      `json:"count,omitempty" yaml:"count,omitempty" validate:"gte=0"`
	List   []string `json:"list,omitempty" yaml:"list,omitempty"`
}

// Resolve returns the configured section list, nil when none is configured.
func (s Sections) Resolve() []string {
	if len(s.List) > 0 {
		return s.List
	}
	if s.Count > 0 {
		return report.SectionRange(s.Prefix, s.Count)
	}
	return nil
}

// Redemption configures which final exam questions are redemption questions
// and the threshold used for the top sections view.
type Redemption struct {
	Questions []int   `json:"questions,omitempty" yaml:"questions,omitempty" validate:"dive,gt=0"`
	Threshold float64 `json:"threshold" yaml:"threshold" validate:"gte=0,lte=1"`
	MinCount  int     `json:"min_count" yaml:"minCount" split_words:"true" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Policy: grade.DefaultPolicy(),
		Columns: Columns{
			ID:      gradebook.DefaultIDColumn,
			Section: gradebook.DefaultSectionColumn,
		},
		Redemption: Redemption{
			Threshold: report.DefaultThreshold,
			MinCount:  report.DefaultMinCount,
		},
		LogLevel: "info",
	}
}

// Validate checks field ranges and the policy's cross-field rules.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config required")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load builds the configuration from the defaults, the YAML file at path when
// it exists, and GRADEPULSE_* environment variables, in that order.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			slog.Debug("config file loaded", "path", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("error reading environment overrides: %w", err)
	}

	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration to path, creating its directory.
func Save(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate loads the config at path, writing the defaults there first
// when the file does not exist.
func ReadOrCreate(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}
	return Load(path)
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "dir", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
