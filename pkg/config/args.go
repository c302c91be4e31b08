// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// MaxFileSize bounds an argument-style config file.
	MaxFileSize = 2047
	// MaxFileArgs bounds the number of tokens in an argument-style config file.
	MaxFileArgs = 5
)

// Usage is printed on usage errors.
const Usage = `Usage:	wlbr -c config-file
	wlbr [-d] [-w] [options] wireless-if client-if
`

var (
	// ErrHelp is returned when -h or --help was given.
	ErrHelp = pflag.ErrHelp
	// ErrVersion is returned when --version was given.
	ErrVersion = errors.New("version requested")
)

// ParseArgs builds a Config from command-line arguments (without the program
// name). "-c file" must be the only argument; the file is read and its
// contents parsed as if they had been given on the command line, except that
// it cannot name another config file.
func ParseArgs(args []string) (*Config, error) {
	return parse(args, true)
}

func parse(args []string, allowConfigFile bool) (*Config, error) {
	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	var (
		configFile string
		healthAddr string
	)
	fs := newFlagSet(cfg, &configFile, &healthAddr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if help, _ := fs.GetBool("help"); help {
		return nil, ErrHelp
	}
	if version, _ := fs.GetBool("version"); version {
		return nil, ErrVersion
	}

	if fs.Changed("config") {
		if !allowConfigFile {
			return nil, fmt.Errorf("%w: a config file cannot include another config file", ErrConfig)
		}
		if fs.NFlag() != 1 || fs.NArg() != 0 {
			return nil, fmt.Errorf("%w: -c cannot be combined with other arguments", ErrUsage)
		}
		return Load(configFile)
	}

	switch fs.NArg() {
	case 0:
		// Names may still come from the environment.
	case 2:
		cfg.Wireless = fs.Arg(0)
		cfg.Client = fs.Arg(1)
	default:
		return nil, fmt.Errorf("%w: expected wireless-if and client-if, got %d arguments", ErrUsage, fs.NArg())
	}

	if healthAddr != "" {
		cfg.Health.Enabled = true
		cfg.Health.Addr = healthAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config, configFile, healthAddr *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("wlbr", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	// Options must precede the interface names.
	fs.SetInterspersed(false)

	fs.StringVarP(configFile, "config", "c", "", "read arguments from this file")
	fs.BoolVarP(&cfg.Daemonize, "daemonize", "d", cfg.Daemonize, "detach and run in the background")
	fs.BoolVarP(&cfg.Wait, "wait", "w", cfg.Wait, "wait for missing interfaces instead of exiting")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Syslog, "syslog", cfg.Syslog, "also log to syslog")
	fs.StringVar(healthAddr, "health-addr", "", "serve /health, /ready and /metrics on this address")
	fs.BoolVar(&cfg.Triggers.Netlink, "netlink-watch", cfg.Triggers.Netlink, "recheck missing interfaces on kernel link events")
	fs.StringVar(&cfg.Triggers.File, "trigger-file", cfg.Triggers.File, "recheck missing interfaces when this file is touched")
	fs.Bool("version", false, "print version and exit")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// FlagUsages returns the option help text.
func FlagUsages() string {
	var configFile, healthAddr string
	return newFlagSet(DefaultConfig(), &configFile, &healthAddr).FlagUsages()
}

// tokenize splits the first non-empty line of an argument-style config file
// into arguments.
func tokenize(data []byte) ([]string, error) {
	var line string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	args := strings.Fields(line)
	if len(args) > MaxFileArgs {
		return nil, fmt.Errorf("%w: too many arguments (%d, max %d)", ErrConfig, len(args), MaxFileArgs)
	}
	return args, nil
}
