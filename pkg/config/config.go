// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxInterfaceName is IFNAMSIZ minus the terminating NUL.
const MaxInterfaceName = 15

var (
	// ErrUsage marks invalid command-line usage.
	ErrUsage = errors.New("invalid usage")
	// ErrConfig marks a well-formed invocation with unusable settings.
	ErrConfig = errors.New("invalid configuration")
	// ErrFile marks a config file that could not be read.
	ErrFile = errors.New("config file unreadable")
)

// Config is the resolved configuration for one bridge process.
type Config struct {
	Wireless  string        `yaml:"wireless" env:"WLBR_WIRELESS"`
	Client    string        `yaml:"client" env:"WLBR_CLIENT"`
	Daemonize bool          `yaml:"daemonize" env:"WLBR_DAEMONIZE"`
	Wait      bool          `yaml:"wait" env:"WLBR_WAIT"`
	LogLevel  string        `yaml:"log_level" env:"WLBR_LOG_LEVEL"`
	Syslog    bool          `yaml:"syslog" env:"WLBR_SYSLOG"`
	Health    HealthConfig  `yaml:"health"`
	Triggers  TriggerConfig `yaml:"triggers"`
}

// HealthConfig configures the health HTTP server.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" env:"WLBR_HEALTH_ADDR"` // e.g. "127.0.0.1:8687"
}

// TriggerConfig selects extra recheck sources used in wait mode. SIGUSR1 is
// always a source.
type TriggerConfig struct {
	Netlink bool   `yaml:"netlink"` // recheck on kernel link announcements
	File    string `yaml:"file"`    // recheck when this file is created or touched
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Health: HealthConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8687",
		},
	}
}

// Load reads a config file. YAML files (.yaml, .yml) are decoded as
// documents; anything else is treated as a line of command-line arguments.
func Load(path string) (*Config, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg := DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
		}
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		args, err := tokenize(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return parse(args, false)
	}
}

// readLimited reads at most MaxFileSize bytes and fails on anything larger.
func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFile, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFile, path, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrConfig, path, MaxFileSize)
	}
	return data, nil
}

// ApplyEnvOverrides reads WLBR_* environment variables and applies them to
// the config.
func (c *Config) ApplyEnvOverrides() {
	envOverrides := map[string]func(string){
		"WLBR_WIRELESS":    func(v string) { c.Wireless = v },
		"WLBR_CLIENT":      func(v string) { c.Client = v },
		"WLBR_LOG_LEVEL":   func(v string) { c.LogLevel = v },
		"WLBR_HEALTH_ADDR": func(v string) { c.Health.Addr = v },
	}

	boolOverrides := map[string]*bool{
		"WLBR_DAEMONIZE":      &c.Daemonize,
		"WLBR_WAIT":           &c.Wait,
		"WLBR_SYSLOG":         &c.Syslog,
		"WLBR_HEALTH_ENABLED": &c.Health.Enabled,
	}

	for envKey, setter := range envOverrides {
		if val := os.Getenv(envKey); val != "" {
			setter(val)
		}
	}

	for envKey, target := range boolOverrides {
		if val := os.Getenv(envKey); val != "" {
			*target = parseBool(val)
		}
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Wireless == "" || c.Client == "" {
		return fmt.Errorf("%w: both a wireless and a client interface are required", ErrUsage)
	}

	for _, name := range []string{c.Wireless, c.Client} {
		if len(name) > MaxInterfaceName {
			return fmt.Errorf("%w: interface name %q longer than %d bytes", ErrConfig, name, MaxInterfaceName)
		}
		if strings.ContainsAny(name, "/ \t\n") {
			return fmt.Errorf("%w: interface name %q contains invalid characters", ErrConfig, name)
		}
	}

	if c.Wireless == c.Client {
		return fmt.Errorf("%w: wireless and client interface are both %q", ErrConfig, c.Wireless)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be one of debug, info, warn, error", ErrConfig)
	}

	if c.Health.Enabled && c.Health.Addr == "" {
		return fmt.Errorf("%w: health.addr is required when health is enabled", ErrConfig)
	}

	return nil
}
