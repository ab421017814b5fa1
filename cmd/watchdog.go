// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/DataDog/datadog-safeping/common"
	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/watchdog"
)

type watchdogFlags struct {
	cfg      watchdog.Config
	readyFD  int
	logLevel string
}

var wdFlags watchdogFlags

var watchdogCmd = &cobra.Command{
	Use:    "watchdog",
	Short:  "Run the heartbeat watchdog of a supervised session",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		log.SetPrefix("[watchdog] ")
		if err := setupLogging(wdFlags.logLevel, verbose); err != nil {
			return err
		}
		// a terminal interrupt reaches both processes; the prober decides
		signal.Ignore(os.Interrupt)

		var ready io.Writer
		if wdFlags.readyFD > 0 {
			ready = os.NewFile(uintptr(wdFlags.readyFD), "ready")
		}
		return runWatchdog(cmd.Context(), wdFlags.cfg, ready)
	},
}

// runWatchdog binds the heartbeat endpoint, reports readiness on ready and
// monitors the prober. Reaching the idle deadline is a normal exit.
func runWatchdog(ctx context.Context, cfg watchdog.Config, ready io.Writer) error {
	sup := watchdog.New(cfg, nil)
	if err := sup.Listen(ctx); err != nil {
		return err
	}
	if ready != nil {
		if err := watchdog.NotifyReady(ready); err != nil {
			return err
		}
	}

	report, err := sup.Run(ctx)
	log.Debugf("session %s: watchdog finished after %d ticks (%d resets, final signal sent: %t)",
		cfg.SessionID, report.Ticks, report.Resets, report.FinalSignalSent)
	if errors.Is(err, watchdog.ErrAcceptTimeout) {
		return &common.WatchdogError{Err: err}
	}
	return err
}

func init() {
	d := watchdog.DefaultConfig()
	f := watchdogCmd.Flags()
	f.StringVarP(&wdFlags.cfg.Address, "addr", "", d.Address, "Loopback address to listen on")
	f.DurationVarP(&wdFlags.cfg.TickPeriod, "tick", "", d.TickPeriod, "Tick period")
	f.IntVarP(&wdFlags.cfg.IdleDeadline, "idle-ticks", "", d.IdleDeadline, "Idle ticks before terminating the prober")
	f.DurationVarP(&wdFlags.cfg.AcceptTimeout, "accept-timeout", "", d.AcceptTimeout, "How long to wait for the prober to connect")
	f.IntVarP(&wdFlags.readyFD, "ready-fd", "", 0, "Descriptor to write the ready byte to (0 disables)")
	f.StringVarP(&wdFlags.cfg.SessionID, "session", "", "", "Session id attached to log lines")
	f.StringVarP(&wdFlags.logLevel, "log-level", "", "info", "Log level (error, warn, info, debug, trace)")
	rootCmd.AddCommand(watchdogCmd)
}
