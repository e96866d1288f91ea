// Package config loads kropbot configuration for both processes.
//
// Resolution order: baked-in baseline, then an optional YAML file
// (KROPBOT_CONFIG or ./config.yaml), then KROPBOT_* environment overrides,
// then validation. Both relayd and roverd read the same structure and use
// the sections they care about.
package config

import (
	"time"
)

// Config is the complete configuration for relayd and roverd.
type Config struct {
	Relay   RelayConfig   `yaml:"relay"`
	Rover   RoverConfig   `yaml:"rover"`
	Control ControlConfig `yaml:"control"`
	Camera  CameraConfig  `yaml:"camera"`
	Auth    AuthConfig    `yaml:"auth"`
}

// RelayConfig holds the relay process settings.
type RelayConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"readTimeoutSec"`
	WriteTimeoutSec int    `yaml:"writeTimeoutSec"`
	IdleTimeoutSec  int    `yaml:"idleTimeoutSec"`

	// SSE fan-out tuning.
	EventBufferSize      int `yaml:"eventBufferSize"`
	HeartbeatIntervalSec int `yaml:"heartbeatIntervalSec"`

	// Background eviction cadence for the intent buffer.
	EvictionIntervalMs int `yaml:"evictionIntervalMs"`

	HistoryPath string `yaml:"historyPath"`
	AuditDir    string `yaml:"auditDir"`
}

// RoverConfig holds the rover process settings.
type RoverConfig struct {
	RelayURL   string `yaml:"relayUrl"`
	I2CAdapter int    `yaml:"i2cAdapter"`
	MotorAddr  int    `yaml:"motorAddr"`
}

// ControlConfig holds the control-loop boundary constants.
type ControlConfig struct {
	// InstructionDurationSec is how long one vote stays live without being
	// refreshed. Low enough that a vanished operator stops the rover, high
	// enough that a lagging active operator is not dropped between polls.
	InstructionDurationSec int `yaml:"instructionDurationSec"`

	// UpdatesPerSecond is the control loop tick rate.
	UpdatesPerSecond int `yaml:"updatesPerSecond"`

	// StopThreshold forces near-cancelling vote sums to a full stop.
	StopThreshold float64 `yaml:"stopThreshold"`

	// PollTimeoutSec bounds the wait for a relay poll response.
	PollTimeoutSec int `yaml:"pollTimeoutSec"`
}

// CameraConfig holds the frame streaming settings.
type CameraConfig struct {
	FPS     int `yaml:"fps"`
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Quality int `yaml:"quality"`
}

// AuthConfig holds the shared-secret token settings. An empty secret
// disables authentication (development mode).
type AuthConfig struct {
	Secret      string `yaml:"secret"`
	TokenTTLSec int    `yaml:"tokenTtlSec"`
}

// LoadBaseline returns the baked-in default configuration.
func LoadBaseline() *Config {
	return &Config{
		Relay: RelayConfig{
			Addr:                 ":8000",
			ReadTimeoutSec:       30,
			WriteTimeoutSec:      30,
			IdleTimeoutSec:       120,
			EventBufferSize:      50,
			HeartbeatIntervalSec: 15,
			EvictionIntervalMs:   1000,
			HistoryPath:          "kropbot.db",
			AuditDir:             "logs",
		},
		Rover: RoverConfig{
			RelayURL:   "http://localhost:8000",
			I2CAdapter: 1,
			MotorAddr:  0x6F,
		},
		Control: ControlConfig{
			InstructionDurationSec: 3,
			UpdatesPerSecond:       5,
			StopThreshold:          0.05,
			PollTimeoutSec:         5,
		},
		Camera: CameraConfig{
			FPS:     5,
			Width:   200,
			Height:  300,
			Quality: 10,
		},
		Auth: AuthConfig{
			TokenTTLSec: 86400,
		},
	}
}

// InstructionDuration returns the vote TTL.
func (c *ControlConfig) InstructionDuration() time.Duration {
	return time.Duration(c.InstructionDurationSec) * time.Second
}

// TickPeriod returns the control loop period.
func (c *ControlConfig) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.UpdatesPerSecond)
}

// PollTimeout returns the bound on one relay poll exchange.
func (c *ControlConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSec) * time.Second
}

// ReadTimeout returns the HTTP server read timeout.
func (c *RelayConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the HTTP server write timeout.
func (c *RelayConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// IdleTimeout returns the HTTP server idle timeout.
func (c *RelayConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// HeartbeatInterval returns the SSE heartbeat cadence.
func (c *RelayConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSec) * time.Second
}

// EvictionInterval returns the intent janitor cadence.
func (c *RelayConfig) EvictionInterval() time.Duration {
	return time.Duration(c.EvictionIntervalMs) * time.Millisecond
}

// FramePeriod returns the camera capture period.
func (c *CameraConfig) FramePeriod() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// TokenTTL returns the JWT lifetime.
func (c *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSec) * time.Second
}
