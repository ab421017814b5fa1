// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"context"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/prober"
)

var plainArgs args

var plainCmd = &cobra.Command{
	Use:   "plain [ipv4]",
	Short: "Ping without a watchdog; a silent destination blocks forever",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := resolveConfig(cmd, &plainArgs, false)
		if err != nil {
			return err
		}
		if err := setupLogging(cfg.Log.Level, verbose); err != nil {
			return err
		}
		log.Debugf("effective configuration:\n%s", cfg)

		return runSession(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), runPlain(cfg.ProberConfig))
	},
}

// runPlain probes with no kill switch
func runPlain(proberConfig func(dst netip.Addr, sessionID string) prober.Config) func(context.Context, *session) error {
	return func(ctx context.Context, s *session) error {
		pcfg := s.proberConfig(proberConfig(s.dst, s.id))
		ps, err := prober.NewSession(pcfg, s.conn, s.metrics)
		if err != nil {
			return err
		}
		if err := s.printer.PrintHeader(s.dst, ps.PayloadLen()); err != nil {
			return err
		}
		return ps.Run(ctx, nil, s.printer.PrintResult)
	}
}

func init() {
	bindSessionFlags(plainCmd, &plainArgs)
	rootCmd.AddCommand(plainCmd)
}
