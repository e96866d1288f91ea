package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Load merges the baseline with an optional YAML file and KROPBOT_* env
// overrides, then validates the result.
func Load() (*Config, error) {
	cfg := LoadBaseline()

	path := os.Getenv("KROPBOT_CONFIG")
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if explicit {
		// An explicitly named file must exist.
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file contents onto cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies KROPBOT_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KROPBOT_ADDR"); v != "" {
		cfg.Relay.Addr = v
	}
	if v := os.Getenv("KROPBOT_RELAY_URL"); v != "" {
		cfg.Rover.RelayURL = v
	}
	if v := os.Getenv("KROPBOT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("KROPBOT_HISTORY_PATH"); v != "" {
		cfg.Relay.HistoryPath = v
	}
	if v := os.Getenv("KROPBOT_AUDIT_DIR"); v != "" {
		cfg.Relay.AuditDir = v
	}
	if v := os.Getenv("KROPBOT_I2C_ADAPTER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Rover.I2CAdapter = n
		}
	}
	if v := os.Getenv("KROPBOT_UPDATES_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Control.UpdatesPerSecond = n
		}
	}
	if v := os.Getenv("KROPBOT_INSTRUCTION_DURATION_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Control.InstructionDurationSec = n
		}
	}
}

// Validate checks the merged configuration.
func Validate(cfg *Config) error {
	if cfg.Relay.Addr == "" {
		return fmt.Errorf("relay addr must not be empty")
	}
	if cfg.Rover.RelayURL == "" {
		return fmt.Errorf("rover relay URL must not be empty")
	}
	if cfg.Control.InstructionDurationSec <= 0 {
		return fmt.Errorf("instruction duration must be positive, got %d", cfg.Control.InstructionDurationSec)
	}
	if cfg.Control.UpdatesPerSecond <= 0 || cfg.Control.UpdatesPerSecond > 1000 {
		return fmt.Errorf("updates per second must be in 1..1000, got %d", cfg.Control.UpdatesPerSecond)
	}
	if cfg.Control.StopThreshold < 0 || cfg.Control.StopThreshold >= 1 {
		return fmt.Errorf("stop threshold must be in [0, 1), got %f", cfg.Control.StopThreshold)
	}
	if cfg.Control.PollTimeoutSec <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %d", cfg.Control.PollTimeoutSec)
	}
	if cfg.Camera.FPS <= 0 {
		return fmt.Errorf("camera fps must be positive, got %d", cfg.Camera.FPS)
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.Quality < 1 || cfg.Camera.Quality > 100 {
		return fmt.Errorf("camera quality must be in 1..100, got %d", cfg.Camera.Quality)
	}
	if cfg.Relay.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", cfg.Relay.EventBufferSize)
	}
	if cfg.Rover.MotorAddr <= 0 || cfg.Rover.MotorAddr > 0x7F {
		return fmt.Errorf("motor address must be a 7-bit I2C address, got 0x%x", cfg.Rover.MotorAddr)
	}
	return nil
}
