// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrAcceptTimeout is returned when nobody connects in time
var ErrAcceptTimeout = errors.New("no heartbeat connection before deadline")

// Listener waits for the single prober connection
type Listener struct {
	ln *net.TCPListener
}

// Listen binds addr with SO_REUSEADDR so a restarted watchdog doesn't trip
// over the previous run's TIME_WAIT sockets.
func Listen(ctx context.Context, addr string) (*Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("unexpected listener type %T", ln)
	}
	return &Listener{ln: tcpLn}, nil
}

func reuseAddrControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if sockErr != nil {
		return fmt.Errorf("failed to set SO_REUSEADDR: %w", sockErr)
	}
	return err
}

// Addr is the bound address
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// AcceptOne waits at most timeout for the first connection and then closes
// the listening socket, so every later connection attempt is refused. A
// non-positive timeout waits until ctx is done.
func (l *Listener) AcceptOne(ctx context.Context, timeout time.Duration) (*Conn, error) {
	defer l.ln.Close()

	if timeout > 0 {
		if err := l.ln.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("failed to set accept deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.SetDeadline(time.Now())
	})
	defer stop()

	c, err := l.ln.AcceptTCP()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrAcceptTimeout
		}
		return nil, fmt.Errorf("failed to accept heartbeat connection: %w", err)
	}

	hc, err := NewConn(c)
	if err != nil {
		c.Close()
		return nil, err
	}
	return hc, nil
}

// Close releases the listening socket if AcceptOne never ran
func (l *Listener) Close() error {
	return l.ln.Close()
}
