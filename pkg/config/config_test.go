// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %s", cfg.LogLevel)
	}
	if cfg.Health.Enabled {
		t.Error("health server should be off by default")
	}
	if cfg.Health.Addr != "127.0.0.1:8687" {
		t.Errorf("expected health addr 127.0.0.1:8687, got %s", cfg.Health.Addr)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "wlbr.yaml", `
wireless: wlan0
client: eth0
wait: true
log_level: debug
health:
  enabled: true
  addr: ":9100"
triggers:
  netlink: true
  file: /run/wlbr/recheck
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Wireless != "wlan0" || cfg.Client != "eth0" {
		t.Errorf("unexpected names %s %s", cfg.Wireless, cfg.Client)
	}
	if !cfg.Wait || cfg.LogLevel != "debug" {
		t.Errorf("unexpected wait/log level %+v", cfg)
	}
	if !cfg.Health.Enabled || cfg.Health.Addr != ":9100" {
		t.Errorf("unexpected health %+v", cfg.Health)
	}
	if !cfg.Triggers.Netlink || cfg.Triggers.File != "/run/wlbr/recheck" {
		t.Errorf("unexpected triggers %+v", cfg.Triggers)
	}
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, "wlbr.yml", "wireless: wlan0\nclient: eth0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.Health.Addr != "127.0.0.1:8687" {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	path := writeFile(t, "wlbr.yaml", "wireless: [unterminated\n")
	if _, err := Load(path); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadYAMLEnvOverride(t *testing.T) {
	t.Setenv("WLBR_CLIENT", "eth9")
	t.Setenv("WLBR_LOG_LEVEL", "error")
	path := writeFile(t, "wlbr.yaml", "wireless: wlan0\nclient: eth0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client != "eth9" || cfg.LogLevel != "error" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestApplyEnvOverridesBools(t *testing.T) {
	t.Setenv("WLBR_DAEMONIZE", "1")
	t.Setenv("WLBR_SYSLOG", "TRUE")
	t.Setenv("WLBR_HEALTH_ENABLED", "yes")
	t.Setenv("WLBR_HEALTH_ADDR", ":7000")

	cfg := DefaultConfig()
	cfg.Wait = true
	t.Setenv("WLBR_WAIT", "no")
	cfg.ApplyEnvOverrides()

	if !cfg.Daemonize || !cfg.Syslog || !cfg.Health.Enabled {
		t.Errorf("expected bool overrides applied, got %+v", cfg)
	}
	if cfg.Wait {
		t.Error("WLBR_WAIT=no should clear wait")
	}
	if cfg.Health.Addr != ":7000" {
		t.Errorf("expected health addr :7000, got %s", cfg.Health.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing client", func(c *Config) { c.Client = "" }, ErrUsage},
		{"missing wireless", func(c *Config) { c.Wireless = "" }, ErrUsage},
		{"same names", func(c *Config) { c.Client = c.Wireless }, ErrConfig},
		{"whitespace in name", func(c *Config) { c.Client = "eth 0" }, ErrConfig},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, ErrConfig},
		{"health without addr", func(c *Config) { c.Health.Enabled = true; c.Health.Addr = "" }, ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Wireless = "wlan0"
			cfg.Client = "eth0"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
