package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBaseline(t *testing.T) {
	cfg := LoadBaseline()

	if cfg.Control.InstructionDurationSec != 3 {
		t.Errorf("InstructionDurationSec = %d, want 3", cfg.Control.InstructionDurationSec)
	}
	if cfg.Control.UpdatesPerSecond != 5 {
		t.Errorf("UpdatesPerSecond = %d, want 5", cfg.Control.UpdatesPerSecond)
	}
	if cfg.Control.StopThreshold != 0.05 {
		t.Errorf("StopThreshold = %f, want 0.05", cfg.Control.StopThreshold)
	}
	if cfg.Rover.MotorAddr != 0x6F {
		t.Errorf("MotorAddr = 0x%x, want 0x6f", cfg.Rover.MotorAddr)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("baseline failed validation: %v", err)
	}
}

func TestTickPeriod(t *testing.T) {
	cfg := LoadBaseline()
	if got := cfg.Control.TickPeriod().Milliseconds(); got != 200 {
		t.Errorf("TickPeriod = %dms, want 200ms", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
relay:
  addr: ":9001"
control:
  updatesPerSecond: 10
auth:
  secret: "test-secret"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KROPBOT_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Relay.Addr != ":9001" {
		t.Errorf("Addr = %q, want :9001", cfg.Relay.Addr)
	}
	if cfg.Control.UpdatesPerSecond != 10 {
		t.Errorf("UpdatesPerSecond = %d, want 10", cfg.Control.UpdatesPerSecond)
	}
	if cfg.Auth.Secret != "test-secret" {
		t.Errorf("Secret = %q, want test-secret", cfg.Auth.Secret)
	}
	// Untouched fields keep baseline values.
	if cfg.Control.InstructionDurationSec != 3 {
		t.Errorf("InstructionDurationSec = %d, want baseline 3", cfg.Control.InstructionDurationSec)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("KROPBOT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load() succeeded with a missing explicit config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KROPBOT_CONFIG", "")
	t.Setenv("KROPBOT_ADDR", ":7777")
	t.Setenv("KROPBOT_SECRET", "env-secret")
	t.Setenv("KROPBOT_UPDATES_PER_SECOND", "20")
	t.Setenv("KROPBOT_HISTORY_PATH", "/var/lib/kropbot/history.db")

	cfg := LoadBaseline()
	applyEnvOverrides(cfg)

	if cfg.Relay.Addr != ":7777" {
		t.Errorf("Addr = %q, want :7777", cfg.Relay.Addr)
	}
	if cfg.Relay.HistoryPath != "/var/lib/kropbot/history.db" {
		t.Errorf("HistoryPath = %q, want /var/lib/kropbot/history.db", cfg.Relay.HistoryPath)
	}
	if cfg.Auth.Secret != "env-secret" {
		t.Errorf("Secret = %q, want env-secret", cfg.Auth.Secret)
	}
	if cfg.Control.UpdatesPerSecond != 20 {
		t.Errorf("UpdatesPerSecond = %d, want 20", cfg.Control.UpdatesPerSecond)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.Control.UpdatesPerSecond = 0 }},
		{"negative instruction duration", func(c *Config) { c.Control.InstructionDurationSec = -1 }},
		{"threshold >= 1", func(c *Config) { c.Control.StopThreshold = 1.0 }},
		{"empty relay addr", func(c *Config) { c.Relay.Addr = "" }},
		{"empty relay url", func(c *Config) { c.Rover.RelayURL = "" }},
		{"zero camera fps", func(c *Config) { c.Camera.FPS = 0 }},
		{"quality out of range", func(c *Config) { c.Camera.Quality = 0 }},
		{"bad motor address", func(c *Config) { c.Rover.MotorAddr = 0x100 }},
	}

	for _, tc := range cases {
		cfg := LoadBaseline()
		tc.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: Validate() accepted invalid config", tc.name)
		}
	}
}
