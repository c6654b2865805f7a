package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Orchestration.OverloadThreshold != 80.0 {
		t.Errorf("OverloadThreshold = %v, want 80.0", cfg.Orchestration.OverloadThreshold)
	}
	if cfg.Orchestration.UnderloadThreshold != 50.0 {
		t.Errorf("UnderloadThreshold = %v, want 50.0", cfg.Orchestration.UnderloadThreshold)
	}
	if cfg.Sessions.DefaultMaxDuration != 0 {
		t.Errorf("DefaultMaxDuration = %v, want 0", cfg.Sessions.DefaultMaxDuration)
	}
	if len(cfg.Capabilities) == 0 {
		t.Fatal("no default capability keywords")
	}
	if _, ok := cfg.Capabilities["frontend_development"]; !ok {
		t.Error("frontend_development missing from default capabilities")
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
orchestration:
  overload_threshold: 90
  underload_threshold: 25
sessions:
  default_max_duration: 2h
debug:
  log_file: /tmp/taskmesh-debug.log
capabilities:
  data_engineering:
    - etl
    - pipeline
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Orchestration.OverloadThreshold != 90.0 {
		t.Errorf("OverloadThreshold = %v, want 90.0", cfg.Orchestration.OverloadThreshold)
	}
	if cfg.Orchestration.UnderloadThreshold != 25.0 {
		t.Errorf("UnderloadThreshold = %v, want 25.0", cfg.Orchestration.UnderloadThreshold)
	}
	if cfg.Sessions.DefaultMaxDuration != 2*time.Hour {
		t.Errorf("DefaultMaxDuration = %v, want 2h", cfg.Sessions.DefaultMaxDuration)
	}
	if cfg.Debug.LogFile != "/tmp/taskmesh-debug.log" {
		t.Errorf("LogFile = %q", cfg.Debug.LogFile)
	}
	if kws := cfg.Capabilities["data_engineering"]; len(kws) != 2 || kws[0] != "etl" {
		t.Errorf("capabilities = %v", cfg.Capabilities)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromPath() with missing file succeeded")
	}
}

func TestCapabilityNames(t *testing.T) {
	cfg := &Config{Capabilities: map[string][]string{
		"b_cap": nil,
		"a_cap": nil,
	}}
	names := cfg.CapabilityNames()
	if len(names) != 2 || names[0] != "a_cap" || names[1] != "b_cap" {
		t.Errorf("CapabilityNames() = %v", names)
	}
}
