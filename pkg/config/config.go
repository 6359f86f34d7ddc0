// Package config loads harness configuration from dinerbench.yaml with
// environment-variable overrides.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the harness settings. Zero values defer to Default.
type Config struct {
	ScenariosDir string `yaml:"scenarios_dir"`
	ResultsDir   string `yaml:"results_dir"`
	ReportsDir   string `yaml:"reports_dir"`

	// Threshold is the minimum passing fraction for a compliant run.
	Threshold float64 `yaml:"threshold"`

	// PerformanceTargetMs applies to scenarios that don't set their own.
	PerformanceTargetMs int `yaml:"performance_target_ms"`

	SQLValidation    bool `yaml:"sql_validation"`
	PhraseValidation bool `yaml:"phrase_validation"`

	// ReplayDir points at recorded exchanges for offline runs.
	ReplayDir string `yaml:"replay_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ScenariosDir: "scenarios",
		ResultsDir:   "results",
		ReportsDir:   "reports",
		Threshold:    0.90,
	}
}

// Load reads path as strict YAML over the defaults. A missing file is not
// an error — the defaults (plus env overrides) apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // reject unknown fields
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays DINERBENCH_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("DINERBENCH_SCENARIOS_DIR"); v != "" {
		c.ScenariosDir = v
	}
	if v := os.Getenv("DINERBENCH_RESULTS_DIR"); v != "" {
		c.ResultsDir = v
	}
	if v := os.Getenv("DINERBENCH_REPORTS_DIR"); v != "" {
		c.ReportsDir = v
	}
	if v := os.Getenv("DINERBENCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			c.Threshold = f
		}
	}
	if v := os.Getenv("DINERBENCH_REPLAY_DIR"); v != "" {
		c.ReplayDir = v
	}
}
