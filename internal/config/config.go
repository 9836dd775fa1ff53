// Package config carries verifier-wide defaults and the logger
// constructor: default solver engine, default reduction level, default
// failure bound, plus an optional YAML defaults file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"
)

// Every field has a zero-value-safe default, optionally overridden by a
// YAML file via Load.
const (
	DefaultEngine    = 1 // 1 = post*, 2 = pre*
	DefaultReduction = 0
	DefaultK         = uint32(0)
)

// Defaults is the verifier-wide configuration, loaded from an optional
// YAML file and overlaid with CLI flags by the caller.
type Defaults struct {
	Engine    int    `yaml:"engine"`
	Reduction int    `yaml:"reduction"`
	K         uint32 `yaml:"k"`
}

// New returns the built-in defaults.
func New() Defaults {
	return Defaults{Engine: DefaultEngine, Reduction: DefaultReduction, K: DefaultK}
}

// Load reads a YAML defaults file, overlaying any fields it sets onto the
// built-in defaults. An empty path is not an error: it just means no
// override file was given.
func Load(path string) (Defaults, error) {
	d := New()
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return d, nil
}

// NewLogger builds the tint-backed slog logger, switching between Info
// and Debug on a --verbose flag.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
