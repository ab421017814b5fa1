// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package config provides configuration parsing and validation for safeping.
package config

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DataDog/datadog-safeping/ledger"
	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/packets"
	"github.com/DataDog/datadog-safeping/prober"
	"github.com/DataDog/datadog-safeping/supervisor"
	"github.com/DataDog/datadog-safeping/watchdog"
)

// Config is the complete safeping configuration
type Config struct {
	Probe    ProbeConfig    `yaml:"probe"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ProbeConfig controls the echo requests
type ProbeConfig struct {
	Count          int           `yaml:"count"`         // 0 runs until stopped
	Interval       time.Duration `yaml:"interval"`      // pause between probes
	PollInterval   time.Duration `yaml:"poll_interval"` // bound of one supervised wait
	AcceptAnyReply bool          `yaml:"accept_any_reply"`
	VerifyChecksum bool          `yaml:"verify_checksum"`
	LedgerTTL      time.Duration `yaml:"ledger_ttl"`
}

// WatchdogConfig controls the watchdog process
type WatchdogConfig struct {
	Address        string        `yaml:"address"`
	Tick           time.Duration `yaml:"tick"`
	IdleTicks      int           `yaml:"idle_ticks"`
	AcceptTimeout  time.Duration `yaml:"accept_timeout"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
}

type OutputConfig struct {
	JSON bool `yaml:"json"`
}

type LogConfig struct {
	Level string `yaml:"level"` // error, warn, info, debug, trace
}

// MetricsConfig enables the Prometheus endpoint when Address is set
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Probe: ProbeConfig{
			Interval:     prober.DefaultInterval,
			PollInterval: packets.DefaultPollInterval,
			LedgerTTL:    ledger.DefaultTTL,
		},
		Watchdog: WatchdogConfig{
			Address:        watchdog.DefaultAddress,
			Tick:           watchdog.DefaultTickPeriod,
			IdleTicks:      watchdog.DefaultIdleDeadline,
			AcceptTimeout:  watchdog.DefaultAcceptTimeout,
			StartupTimeout: supervisor.DefaultStartupTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes on top of the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their values.
// ${VAR:-default} falls back to default; unknown variables are kept as is.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			if val, ok := os.LookupEnv(name[:idx]); ok {
				return val
			}
			return name[idx+2:]
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Probe.Count < 0 {
		errs = append(errs, "probe.count must not be negative")
	}
	if c.Probe.Interval <= 0 {
		errs = append(errs, "probe.interval must be positive")
	}
	if c.Probe.PollInterval < time.Millisecond {
		errs = append(errs, "probe.poll_interval must be at least 1ms")
	}
	if c.Probe.LedgerTTL <= 0 {
		errs = append(errs, "probe.ledger_ttl must be positive")
	}

	if err := validateLoopbackAddr(c.Watchdog.Address); err != nil {
		errs = append(errs, fmt.Sprintf("watchdog.address: %v", err))
	}
	if c.Watchdog.Tick <= 0 {
		errs = append(errs, "watchdog.tick must be positive")
	}
	if c.Watchdog.IdleTicks < 1 {
		errs = append(errs, "watchdog.idle_ticks must be at least 1")
	}
	if c.Watchdog.AcceptTimeout <= 0 {
		errs = append(errs, "watchdog.accept_timeout must be positive")
	}
	if c.Watchdog.StartupTimeout <= 0 {
		errs = append(errs, "watchdog.startup_timeout must be positive")
	}

	if _, err := log.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be error, warn, info, debug or trace)", c.Log.Level))
	}

	if c.Metrics.Address != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.address: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ValidateSupervised checks the configuration of a session run under a
// watchdog. The watchdog reads one heartbeat byte per tick and the prober
// sends one per reply, so probing faster than the watchdog ticks queues
// bytes that each postpone the idle deadline.
func (c *Config) ValidateSupervised() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Probe.Interval < c.Watchdog.Tick {
		return fmt.Errorf("validation errors:\n  - probe.interval (%s) must not be shorter than watchdog.tick (%s)", c.Probe.Interval, c.Watchdog.Tick)
	}
	return nil
}

// the heartbeat link never leaves the host
func validateLoopbackAddr(addr string) error {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return err
	}
	if !ap.Addr().Is4() || !ap.Addr().IsLoopback() {
		return fmt.Errorf("%s is not an IPv4 loopback address", ap.Addr())
	}
	if ap.Port() == 0 {
		return fmt.Errorf("%s has no port", addr)
	}
	return nil
}

// ProberConfig returns the probe session settings for dst
func (c *Config) ProberConfig(dst netip.Addr, sessionID string) prober.Config {
	return prober.Config{
		Destination:    dst,
		Interval:       c.Probe.Interval,
		PollInterval:   c.Probe.PollInterval,
		Count:          c.Probe.Count,
		AcceptAnyReply: c.Probe.AcceptAnyReply,
		VerifyChecksum: c.Probe.VerifyChecksum,
		LedgerTTL:      c.Probe.LedgerTTL,
		SessionID:      sessionID,
	}
}

// WatchdogConfig returns the watchdog settings
func (c *Config) WatchdogConfig(sessionID string) watchdog.Config {
	return watchdog.Config{
		Address:       c.Watchdog.Address,
		TickPeriod:    c.Watchdog.Tick,
		IdleDeadline:  c.Watchdog.IdleTicks,
		AcceptTimeout: c.Watchdog.AcceptTimeout,
		SessionID:     sessionID,
	}
}

// SupervisorConfig returns the settings of a supervised session to dst
func (c *Config) SupervisorConfig(dst netip.Addr, sessionID string) supervisor.Config {
	return supervisor.Config{
		Prober:         c.ProberConfig(dst, sessionID),
		Watchdog:       c.WatchdogConfig(sessionID),
		StartupTimeout: c.Watchdog.StartupTimeout,
		LogLevel:       c.Log.Level,
	}
}

func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
