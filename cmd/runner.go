// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"context"
	"errors"
	"io"
	"net/netip"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/DataDog/datadog-safeping/common"
	"github.com/DataDog/datadog-safeping/config"
	"github.com/DataDog/datadog-safeping/localaddr"
	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/metrics"
	"github.com/DataDog/datadog-safeping/packets"
	"github.com/DataDog/datadog-safeping/prober"
	"github.com/DataDog/datadog-safeping/result"
)

// session is everything a probe mode needs once the target is known
type session struct {
	dst        netip.Addr
	id         string
	identifier uint16
	source     netip.Addr
	conn       packets.Conn
	metrics    *metrics.Metrics
	printer    *result.Printer
}

// proberConfig ties pc to this session's socket and route
func (s *session) proberConfig(pc prober.Config) prober.Config {
	pc.Identifier = s.identifier
	pc.Source = s.source
	return pc
}

// newConn is replaced in tests
var newConn = packets.NewConn

// runSession validates target, opens the ICMP socket and calls probe. When
// a metrics address is configured the endpoint is served for as long as
// probe runs. An interrupt ends the session normally.
func runSession(ctx context.Context, cfg *config.Config, target string, stdout io.Writer, probe func(context.Context, *session) error) error {
	dst, err := common.ParseDestination(target)
	if err != nil {
		return err
	}

	s := &session{
		dst:        dst,
		id:         result.NewSessionID(),
		identifier: uint16(os.Getpid()),
		printer:    result.NewPrinter(stdout, cfg.Output.JSON),
		metrics:    metrics.NewWithRegistry(nil),
	}
	if cfg.Metrics.Address != "" {
		s.metrics = metrics.Default()
	}

	if src, err := localaddr.SourceFor(dst); err != nil {
		log.Debugf("session %s: could not determine source address for %s: %s", s.id, dst, err)
	} else {
		log.Debugf("session %s: probing %s from %s", s.id, dst, src)
		s.source = src
	}

	var opts packets.ConnOptions
	if !cfg.Probe.AcceptAnyReply {
		opts.Filter = packets.FilterSpec{EchoReplyOnly: true, Identifier: s.identifier}
	}
	s.conn, err = newConn(opts)
	if err != nil {
		return err
	}
	defer s.conn.Close()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return probe(runCtx, s)
	})
	if cfg.Metrics.Address != "" {
		g.Go(func() error {
			return metrics.Serve(runCtx, cfg.Metrics.Address, prometheus.DefaultGatherer)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Debugf("session %s: interrupted", s.id)
		return nil
	}
	return err
}
