// Package config loads and saves the stepseq settings file
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/james-see/stepseq/pkg/export"
	"github.com/james-see/stepseq/pkg/pattern"
)

// Config holds playback and new-pattern defaults
type Config struct {
	BPM          float64 `json:"bpm"`
	Swing        float64 `json:"swing"`
	Metronome    bool    `json:"metronome"`
	OutputPort   string  `json:"outputPort,omitempty"`
	TicksPerBeat uint16  `json:"ticksPerBeat"`
	LogLevel     string  `json:"logLevel,omitempty"`

	Rows        int `json:"rows"`
	Bars        int `json:"bars"`
	StepsPerBar int `json:"stepsPerBar"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		BPM:          pattern.DefaultBPM,
		TicksPerBeat: export.DefaultTicksPerBeat,
		LogLevel:     "info",
		Rows:         pattern.DefaultRows,
		Bars:         pattern.DefaultBars,
		StepsPerBar:  pattern.DefaultStepsPerBar,
	}
}

// Normalize clamps every field into its valid range. Zero values take defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.BPM == 0 {
		c.BPM = d.BPM
	}
	c.BPM = pattern.ClampBPM(c.BPM)
	c.Swing = pattern.ClampSwing(c.Swing)
	if c.TicksPerBeat == 0 {
		c.TicksPerBeat = d.TicksPerBeat
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Rows < 1 {
		c.Rows = d.Rows
	}
	if c.Bars < 1 {
		c.Bars = d.Bars
	}
	if c.StepsPerBar < 1 {
		c.StepsPerBar = d.StepsPerBar
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stepseq"), nil
}

// Path returns the full path to config.json
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, or the default location when path is empty.
// A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to path, or the default location when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
