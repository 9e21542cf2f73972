// Package config holds the otl command settings.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/selection"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/snapshot"
)

// Config controls logging, save defaults, restore behavior and metrics.
type Config struct {
	Log     Log     `toml:"log"`
	Save    Save    `toml:"save"`
	Restore Restore `toml:"restore"`
	Metrics Metrics `toml:"metrics"`
}

// Log selects the logger.
type Log struct {
	Level       string `toml:"level"`
	Format      string `toml:"format"` // "json" or "console"
	Output      string `toml:"output"`
	Development bool   `toml:"development"`
}

// Save holds the defaults for the save command.
type Save struct {
	Tracks       bool   `toml:"tracks"`
	Zones        bool   `toml:"zones"`
	Text         bool   `toml:"text"`
	Drawings     bool   `toml:"drawings"`
	Intersecting bool   `toml:"intersecting"`
	Format       string `toml:"format"` // "yaml" or "pckl"
	Filter       string `toml:"filter"`
}

// Restore holds the defaults for the restore command.
type Restore struct {
	// Group names the group replicated elements are collected in. Empty
	// disables grouping.
	Group string `toml:"group"`
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Save: Save{
			Tracks:   true,
			Zones:    true,
			Text:     true,
			Drawings: true,
			Format:   "yaml",
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	c := DefaultConfig()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for errors and fills in missing values.
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	switch c.Log.Format {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.Log.Format)
	}

	switch c.Save.Format {
	case "":
		c.Save.Format = "yaml"
	default:
		if _, err := snapshot.FormatFor("x." + c.Save.Format); err != nil {
			return fmt.Errorf("save format: %w", err)
		}
	}

	if _, err := selection.CompileFilter(c.Save.Filter); err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	return nil
}

// Encode writes c as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", err
	}
	return b.String(), nil
}
