package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScenariosDir != "scenarios" || cfg.Threshold != 0.90 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dinerbench.yaml")
	data := "scenarios_dir: my-scenarios\nthreshold: 0.75\nsql_validation: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScenariosDir != "my-scenarios" || cfg.Threshold != 0.75 || !cfg.SQLValidation {
		t.Errorf("cfg = %+v", cfg)
	}
	// untouched fields keep their defaults
	if cfg.ReportsDir != "reports" {
		t.Errorf("reports_dir = %q", cfg.ReportsDir)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dinerbench.yaml")
	if err := os.WriteFile(path, []byte("scenario_dir: typo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown field should fail strict decode")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DINERBENCH_SCENARIOS_DIR", "env-scenarios")
	t.Setenv("DINERBENCH_THRESHOLD", "0.5")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScenariosDir != "env-scenarios" || cfg.Threshold != 0.5 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestEnvThresholdIgnoresInvalid(t *testing.T) {
	t.Setenv("DINERBENCH_THRESHOLD", "nine")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threshold != 0.90 {
		t.Errorf("threshold = %f", cfg.Threshold)
	}
}
