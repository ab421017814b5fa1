// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DataDog/datadog-safeping/common"
	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/supervisor"
	"github.com/DataDog/datadog-safeping/watchdog"
)

var rootCmd = &cobra.Command{
	Use:           "safeping [ipv4]",
	Short:         "ICMP echo prober supervised by a heartbeat watchdog",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := resolveConfig(cmd, &Args, true)
		if err != nil {
			return err
		}
		if err := setupLogging(cfg.Log.Level, verbose); err != nil {
			return err
		}
		log.Debugf("effective configuration:\n%s", cfg)

		return runSession(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), func(ctx context.Context, s *session) error {
			scfg := cfg.SupervisorConfig(s.dst, s.id)
			scfg.Prober = s.proberConfig(scfg.Prober)
			scfg.LogLevel = log.GetLogLevel().String()
			spawner := &supervisor.ExecSpawner{Stderr: cmd.ErrOrStderr()}
			return supervisor.New(scfg, spawner, s.conn, s.printer, s.metrics).Run(ctx)
		})
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitStatus(err, os.Stderr))
}

// exitStatus reports err on stderr unless it was already reported and maps
// it to the process exit status.
func exitStatus(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var invalid *common.InvalidTargetError
	switch {
	case errors.As(err, &invalid):
		fmt.Fprintln(stderr, invalid.Error())
	case errors.Is(err, common.ErrDestinationUnreachable), errors.Is(err, watchdog.ErrPeerTerminated):
	default:
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	return common.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log everything (trace level)")
	bindSessionFlags(rootCmd, &Args)
	bindWatchdogFlags(rootCmd, &Args)
}
