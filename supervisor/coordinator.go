// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package supervisor runs a supervised ping session: it starts a watchdog,
// connects the heartbeat link and drives the prober, reporting to the
// watchdog after every reply and giving up as soon as the watchdog says so.
package supervisor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/DataDog/datadog-safeping/common"
	"github.com/DataDog/datadog-safeping/heartbeat"
	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/metrics"
	"github.com/DataDog/datadog-safeping/packets"
	"github.com/DataDog/datadog-safeping/prober"
	"github.com/DataDog/datadog-safeping/result"
	"github.com/DataDog/datadog-safeping/watchdog"
)

const DefaultStartupTimeout = time.Second

// Config controls a supervised session
type Config struct {
	Prober   prober.Config
	Watchdog watchdog.Config
	// StartupTimeout bounds the wait for the watchdog to listen and the dial
	StartupTimeout time.Duration
	LogLevel       string
}

// Coordinator owns the watchdog process and the heartbeat link of one session
type Coordinator struct {
	cfg     Config
	spawner Spawner
	conn    packets.Conn
	printer *result.Printer
	metrics *metrics.Metrics
}

// New creates a Coordinator probing over conn. m may be nil.
func New(cfg Config, spawner Spawner, conn packets.Conn, printer *result.Printer, m *metrics.Metrics) *Coordinator {
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}
	if m == nil {
		m = metrics.NewWithRegistry(nil)
	}
	return &Coordinator{
		cfg:     cfg,
		spawner: spawner,
		conn:    conn,
		printer: printer,
		metrics: m,
	}
}

// Run runs the session until the watchdog gives up, the probe count is
// reached, or something fails. The watchdog consumes one heartbeat per tick,
// so an interval shorter than the tick is refused before anything starts. A destination the watchdog gave up on is
// reported as common.ErrDestinationUnreachable after the notice is printed.
func (c *Coordinator) Run(ctx context.Context) error {
	if interval, tick := c.interval(), c.tick(); interval < tick {
		return errors.Errorf("probe interval %s is shorter than the watchdog tick %s", interval, tick)
	}

	proc, err := c.spawner.Spawn(ctx, SpawnOptions{Watchdog: c.cfg.Watchdog, LogLevel: c.cfg.LogLevel})
	if err != nil {
		return &common.WatchdogError{Err: errors.Wrap(err, "failed to start watchdog")}
	}
	// registered first so it runs after the link is closed
	defer c.reap(proc)

	if err := proc.Ready(ctx, c.cfg.StartupTimeout); err != nil {
		c.kill(proc)
		return &common.WatchdogError{Err: err}
	}

	hb, err := heartbeat.Dial(ctx, proc.Addr(), c.cfg.StartupTimeout)
	if err != nil {
		c.kill(proc)
		return &common.WatchdogError{Err: errors.Wrap(err, "failed to connect to watchdog")}
	}
	defer hb.Close()
	log.Debugf("session %s: heartbeat link %s -> %s", c.cfg.Watchdog.SessionID, hb.LocalAddr(), hb.RemoteAddr())

	session, err := prober.NewSession(c.cfg.Prober, c.conn, c.metrics)
	if err != nil {
		c.terminate(hb)
		return err
	}

	dst := c.cfg.Prober.Destination
	if err := c.printer.PrintHeader(dst, session.PayloadLen()); err != nil {
		c.terminate(hb)
		return err
	}

	err = session.Run(ctx, c.killSwitch(hb), func(r *result.ProbeResult) error {
		if err := c.printer.PrintResult(r); err != nil {
			return err
		}
		if err := hb.Send(heartbeat.SignalAlive); err != nil {
			return errors.Wrap(err, "failed to signal watchdog")
		}
		c.metrics.RecordHeartbeatSent(heartbeat.SignalAlive.String())
		return nil
	})

	if errors.Is(err, common.ErrDestinationUnreachable) {
		if printErr := c.printer.PrintUnreachable(dst); printErr != nil {
			log.Warnf("failed to print unreachable notice: %s", printErr)
		}
		return err
	}

	c.terminate(hb)
	return err
}

// killSwitch drains the heartbeat link. A terminate signal or a broken
// link both end the session.
func (c *Coordinator) killSwitch(hb *heartbeat.Conn) prober.KillSwitch {
	return prober.KillSwitchFunc(func() (bool, error) {
		terminate, n, err := hb.Drain()
		if n > 0 {
			log.Tracef("session %s: drained %d heartbeat bytes", c.cfg.Watchdog.SessionID, n)
		}
		if err != nil {
			return true, err
		}
		if terminate {
			c.metrics.RecordHeartbeatReceived(heartbeat.SignalTerminate.String())
		}
		return terminate, nil
	})
}

// terminate tells the watchdog to stop. Best effort.
func (c *Coordinator) terminate(hb *heartbeat.Conn) {
	if err := hb.Send(heartbeat.SignalTerminate); err != nil {
		log.Debugf("session %s: failed to send terminate to watchdog: %s", c.cfg.Watchdog.SessionID, err)
		return
	}
	c.metrics.RecordHeartbeatSent(heartbeat.SignalTerminate.String())
}

func (c *Coordinator) kill(proc Process) {
	if err := proc.Kill(); err != nil {
		log.Debugf("session %s: failed to kill watchdog: %s", c.cfg.Watchdog.SessionID, err)
	}
}

// reapGrace is how long the watchdog gets to notice the closed link
// interval and tick resolve the zero values the prober and the watchdog
// replace with their defaults
func (c *Coordinator) interval() time.Duration {
	if c.cfg.Prober.Interval <= 0 {
		return prober.DefaultInterval
	}
	return c.cfg.Prober.Interval
}

func (c *Coordinator) tick() time.Duration {
	if c.cfg.Watchdog.TickPeriod <= 0 {
		return watchdog.DefaultTickPeriod
	}
	return c.cfg.Watchdog.TickPeriod
}

func (c *Coordinator) reapGrace() time.Duration {
	return 2*c.tick() + c.cfg.StartupTimeout
}

func (c *Coordinator) reap(proc Process) {
	done := make(chan error, 1)
	go func() {
		done <- proc.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(c.reapGrace()):
		log.Debugf("session %s: watchdog still running, killing it", c.cfg.Watchdog.SessionID)
		c.kill(proc)
		err = <-done
	}
	if err != nil {
		log.Debugf("session %s: watchdog exited: %s", c.cfg.Watchdog.SessionID, err)
	}
}
