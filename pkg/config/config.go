// Package config loads engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the host-tunable engine settings. Durations are given
// in milliseconds so config files match the units scripts use.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// ScriptTimeoutMS bounds a whole run. Zero means unlimited.
	ScriptTimeoutMS int64 `yaml:"script_timeout_ms"`
	// ConfirmTimeoutMS bounds a confirm dialog round trip.
	ConfirmTimeoutMS int64 `yaml:"confirm_timeout_ms"`
	// PromptTimeoutMS bounds a prompt dialog round trip.
	PromptTimeoutMS int64 `yaml:"prompt_timeout_ms"`
	// CommandTimeoutMS bounds ordinary command round trips.
	CommandTimeoutMS int64 `yaml:"command_timeout_ms"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		LogLevel:         "info",
		ScriptTimeoutMS:  30000,
		ConfirmTimeoutMS: 60000,
		PromptTimeoutMS:  120000,
		CommandTimeoutMS: 10000,
	}
}

// Load reads a YAML config file. Fields left out keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.ScriptTimeoutMS < 0 {
		return fmt.Errorf("script_timeout_ms must not be negative")
	}
	if c.ConfirmTimeoutMS <= 0 {
		return fmt.Errorf("confirm_timeout_ms must be positive")
	}
	if c.PromptTimeoutMS <= 0 {
		return fmt.Errorf("prompt_timeout_ms must be positive")
	}
	if c.CommandTimeoutMS <= 0 {
		return fmt.Errorf("command_timeout_ms must be positive")
	}
	return nil
}

// ScriptTimeout returns the run deadline as a duration.
func (c Config) ScriptTimeout() time.Duration {
	return time.Duration(c.ScriptTimeoutMS) * time.Millisecond
}

// ConfirmTimeout returns the confirm round-trip limit.
func (c Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutMS) * time.Millisecond
}

// PromptTimeout returns the prompt round-trip limit.
func (c Config) PromptTimeout() time.Duration {
	return time.Duration(c.PromptTimeoutMS) * time.Millisecond
}

// CommandTimeout returns the command round-trip limit.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}
