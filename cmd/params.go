// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/DataDog/datadog-safeping/config"
	"github.com/DataDog/datadog-safeping/log"
)

type args struct {
	configPath     string
	count          int
	interval       time.Duration
	pollInterval   time.Duration
	watchdogAddr   string
	tick           time.Duration
	idleTicks      int
	acceptTimeout  time.Duration
	startupTimeout time.Duration
	acceptAnyReply bool
	verifyChecksum bool
	json           bool
	logLevel       string
	metricsAddr    string
}

var Args args

// verbose is a persistent flag of the root command
var verbose bool

// bindSessionFlags registers the flags shared by the supervised and plain commands
func bindSessionFlags(cmd *cobra.Command, a *args) {
	d := config.Default()
	f := cmd.Flags()
	f.StringVarP(&a.configPath, "config", "", "", "Path to a YAML config file")
	f.IntVarP(&a.count, "count", "c", d.Probe.Count, "Stop after this many replies (0 runs until stopped)")
	f.DurationVarP(&a.interval, "interval", "", d.Probe.Interval, "Pause between probes")
	f.DurationVarP(&a.pollInterval, "poll-interval", "", d.Probe.PollInterval, "Longest single wait for a reply before checking the watchdog")
	f.BoolVarP(&a.acceptAnyReply, "accept-any-reply", "", d.Probe.AcceptAnyReply, "Accept any ICMP datagram as the reply")
	f.BoolVarP(&a.verifyChecksum, "verify-checksum", "", d.Probe.VerifyChecksum, "Drop replies with a bad ICMP checksum")
	f.BoolVarP(&a.json, "json", "", d.Output.JSON, "Print results as JSON lines")
	f.StringVarP(&a.logLevel, "log-level", "", d.Log.Level, "Log level (error, warn, info, debug, trace)")
	f.StringVarP(&a.metricsAddr, "metrics-addr", "", d.Metrics.Address, "Serve Prometheus metrics on this address")
}

// bindWatchdogFlags registers the flags that configure the watchdog a
// supervised session spawns
func bindWatchdogFlags(cmd *cobra.Command, a *args) {
	d := config.Default()
	f := cmd.Flags()
	f.StringVarP(&a.watchdogAddr, "watchdog-addr", "", d.Watchdog.Address, "Loopback address of the watchdog heartbeat link")
	f.DurationVarP(&a.tick, "tick", "", d.Watchdog.Tick, "Watchdog tick period")
	f.IntVarP(&a.idleTicks, "idle-ticks", "", d.Watchdog.IdleTicks, "Ticks without a heartbeat before the destination is given up")
	f.DurationVarP(&a.acceptTimeout, "accept-timeout", "", d.Watchdog.AcceptTimeout, "How long the watchdog waits for the prober to connect")
	f.DurationVarP(&a.startupTimeout, "startup-timeout", "", d.Watchdog.StartupTimeout, "How long to wait for the watchdog to start")
}

// resolveConfig loads the config file, if any, then applies the flags that
// were set explicitly on cmd. A supervised session is also checked against
// the pace of its watchdog.
func resolveConfig(cmd *cobra.Command, a *args, supervised bool) (*config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	changed := func(name string) bool {
		flag := f.Lookup(name)
		return flag != nil && flag.Changed
	}

	if changed("count") {
		cfg.Probe.Count = a.count
	}
	if changed("interval") {
		cfg.Probe.Interval = a.interval
	}
	if changed("poll-interval") {
		cfg.Probe.PollInterval = a.pollInterval
	}
	if changed("accept-any-reply") {
		cfg.Probe.AcceptAnyReply = a.acceptAnyReply
	}
	if changed("verify-checksum") {
		cfg.Probe.VerifyChecksum = a.verifyChecksum
	}
	if changed("watchdog-addr") {
		cfg.Watchdog.Address = a.watchdogAddr
	}
	if changed("tick") {
		cfg.Watchdog.Tick = a.tick
	}
	if changed("idle-ticks") {
		cfg.Watchdog.IdleTicks = a.idleTicks
	}
	if changed("accept-timeout") {
		cfg.Watchdog.AcceptTimeout = a.acceptTimeout
	}
	if changed("startup-timeout") {
		cfg.Watchdog.StartupTimeout = a.startupTimeout
	}
	if changed("json") {
		cfg.Output.JSON = a.json
	}
	if changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if changed("metrics-addr") {
		cfg.Metrics.Address = a.metricsAddr
	}

	validate := cfg.Validate
	if supervised {
		validate = cfg.ValidateSupervised
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging applies level, unless verbose asks for everything
func setupLogging(level string, verbose bool) error {
	if verbose {
		log.SetVerbose(true)
		return nil
	}
	lvl, err := log.ParseLogLevel(level)
	if err != nil {
		return err
	}
	log.SetLogLevel(lvl)
	return nil
}
