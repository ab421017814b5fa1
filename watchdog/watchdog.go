// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package watchdog runs the supervisor half of a session: it accepts the
// prober's heartbeat connection and, once a tick, either hears from it or
// counts an idle tick. After IdleDeadline idle ticks in a row it tells the
// prober to give up.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/DataDog/datadog-safeping/heartbeat"
	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/metrics"
)

const (
	DefaultAddress       = "127.0.0.1:3000"
	DefaultTickPeriod    = time.Second
	DefaultIdleDeadline  = 10
	DefaultAcceptTimeout = time.Second

	// ReadyByte is written on the ready pipe once the endpoint is bound
	ReadyByte = byte(heartbeat.SignalAlive)
)

var (
	// ErrAcceptTimeout means no prober connected in time
	ErrAcceptTimeout = errors.New("watchdog internal error: prober never connected")
	// ErrPeerTerminated means the prober sent '-'
	ErrPeerTerminated = errors.New("prober requested termination")
	// ErrPeerLost means the heartbeat connection failed or was closed
	ErrPeerLost = errors.New("heartbeat connection lost")
)

// Config controls one watchdog session
type Config struct {
	Address       string
	TickPeriod    time.Duration
	IdleDeadline  int
	AcceptTimeout time.Duration
	SessionID     string
}

// DefaultConfig returns the stock timings
func DefaultConfig() Config {
	return Config{
		Address:       DefaultAddress,
		TickPeriod:    DefaultTickPeriod,
		IdleDeadline:  DefaultIdleDeadline,
		AcceptTimeout: DefaultAcceptTimeout,
	}
}

// Supervisor is a single-use watchdog session
type Supervisor struct {
	cfg      Config
	metrics  *metrics.Metrics
	listener *heartbeat.Listener
	report   Report

	// OnTick, if set, is called after every evaluation with the current report
	OnTick func(Report)
}

// New creates a Supervisor. m may be nil.
func New(cfg Config, m *metrics.Metrics) *Supervisor {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.IdleDeadline <= 0 {
		cfg.IdleDeadline = DefaultIdleDeadline
	}
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = DefaultAcceptTimeout
	}
	if m == nil {
		m = metrics.NewWithRegistry(nil)
	}
	return &Supervisor{
		cfg:     cfg,
		metrics: m,
		report:  Report{State: Listening, LastSign: heartbeat.SignalNone},
	}
}

// Listen binds the heartbeat endpoint. Run calls it if the caller didn't.
func (s *Supervisor) Listen(ctx context.Context) error {
	if s.listener != nil {
		return nil
	}
	ln, err := heartbeat.Listen(ctx, s.cfg.Address)
	if err != nil {
		s.report.State = Terminated
		return err
	}
	s.listener = ln
	s.report.State = AwaitingConnection
	log.Debugf("session %s: watchdog listening on %s", s.cfg.SessionID, ln.Addr())
	return nil
}

// Addr is the bound endpoint, nil before Listen
func (s *Supervisor) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// NotifyReady writes ReadyByte to w and closes it when it is a Closer.
func NotifyReady(w io.Writer) error {
	_, err := w.Write([]byte{ReadyByte})
	if c, ok := w.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	if err != nil {
		return fmt.Errorf("failed to signal readiness: %w", err)
	}
	return nil
}

// Run accepts the prober and monitors it until the idle deadline passes, the
// prober terminates or is lost, or ctx is done. Reaching the idle deadline
// is the normal outcome and returns a nil error.
func (s *Supervisor) Run(ctx context.Context) (Report, error) {
	if err := s.Listen(ctx); err != nil {
		return s.report, err
	}

	conn, err := s.listener.AcceptOne(ctx, s.cfg.AcceptTimeout)
	if err != nil {
		s.report.State = Terminated
		if errors.Is(err, heartbeat.ErrAcceptTimeout) {
			return s.report, ErrAcceptTimeout
		}
		return s.report, err
	}
	defer conn.Close()

	s.report.State = Monitoring
	log.Debugf("session %s: prober connected from %s", s.cfg.SessionID, conn.RemoteAddr())

	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	for s.report.IdleTicks < s.cfg.IdleDeadline {
		if err := s.evaluate(conn); err != nil {
			s.report.State = Terminated
			return s.report, err
		}
		if s.OnTick != nil {
			s.OnTick(s.report)
		}

		select {
		case <-ctx.Done():
			s.report.State = Terminated
			return s.report, ctx.Err()
		case <-ticker.C:
		}
	}

	log.Infof("session %s: no heartbeat for %d ticks, terminating prober", s.cfg.SessionID, s.report.IdleTicks)
	s.report.State = Terminated
	if err := conn.Send(heartbeat.SignalTerminate); err != nil {
		return s.report, fmt.Errorf("%w: %w", ErrPeerLost, err)
	}
	s.metrics.RecordHeartbeatSent(heartbeat.SignalTerminate.String())
	s.report.FinalSignalSent = true
	return s.report, nil
}

// evaluate performs exactly one non-blocking receive
func (s *Supervisor) evaluate(conn *heartbeat.Conn) error {
	s.report.Ticks++

	sig, ok, err := conn.TryRecv()
	if err != nil {
		log.Debugf("session %s: heartbeat receive failed: %s", s.cfg.SessionID, err)
		return fmt.Errorf("%w: %w", ErrPeerLost, err)
	}

	if ok {
		s.metrics.RecordHeartbeatReceived(sig.String())
		if sig == heartbeat.SignalTerminate {
			log.Debugf("session %s: prober sent terminate", s.cfg.SessionID)
			return ErrPeerTerminated
		}
		s.report.IdleTicks = 0
		s.report.Resets++
		s.report.LastSign = sig
		s.metrics.RecordWatchdogTick(s.report.IdleTicks, true)
		log.Tracef("session %s: tick %d: received %s", s.cfg.SessionID, s.report.Ticks, sig)
		return nil
	}

	if err := conn.Send(s.report.LastSign); err != nil {
		return fmt.Errorf("%w: %w", ErrPeerLost, err)
	}
	s.metrics.RecordHeartbeatSent(s.report.LastSign.String())
	s.report.IdleTicks++
	s.metrics.RecordWatchdogTick(s.report.IdleTicks, false)
	log.Tracef("session %s: tick %d: idle %d/%d", s.cfg.SessionID, s.report.Ticks, s.report.IdleTicks, s.cfg.IdleDeadline)
	return nil
}
