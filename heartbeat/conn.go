// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by Send when the kernel send buffer is full
var ErrWouldBlock = errors.New("heartbeat send would block")

// maxDrain caps how many pending bytes Drain consumes in one call
const maxDrain = 4096

// Conn is one end of the heartbeat link. Send and TryRecv never block: they
// go straight to the socket with MSG_DONTWAIT instead of waiting on the
// netpoller.
type Conn struct {
	conn    *net.TCPConn
	rawConn syscall.RawConn
}

// NewConn wraps an established TCP connection
func NewConn(c *net.TCPConn) (*Conn, error) {
	rawConn, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("failed to get raw heartbeat connection: %w", err)
	}
	return &Conn{conn: c, rawConn: rawConn}, nil
}

// Dial connects to a watchdog listening on addr
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Conn, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to watchdog at %s: %w", addr, err)
	}
	tcpConn, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("unexpected connection type %T", c)
	}
	hc, err := NewConn(tcpConn)
	if err != nil {
		tcpConn.Close()
		return nil, err
	}
	return hc, nil
}

// Send writes one signal without waiting for buffer space.
func (c *Conn) Send(sig Signal) error {
	buf := [1]byte{byte(sig)}
	var err error
	writeErr := c.rawConn.Write(func(fd uintptr) bool {
		err = unix.Sendto(int(fd), buf[:], sendFlags, nil)
		return true
	})
	if writeErr != nil {
		return fmt.Errorf("heartbeat send %s: %w", sig, writeErr)
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return ErrWouldBlock
	}
	if err != nil {
		return fmt.Errorf("heartbeat send %s: %w", sig, err)
	}
	return nil
}

// TryRecv reads at most one pending signal. ok is false when nothing is
// pending, which is not an error. An orderly close by the peer is io.EOF.
func (c *Conn) TryRecv() (sig Signal, ok bool, err error) {
	var buf [1]byte
	var n int
	var recvErr error
	readErr := c.rawConn.Read(func(fd uintptr) bool {
		n, _, recvErr = unix.Recvfrom(int(fd), buf[:], unix.MSG_DONTWAIT)
		return true
	})
	if readErr != nil {
		return 0, false, fmt.Errorf("heartbeat recv: %w", readErr)
	}
	switch {
	case recvErr == unix.EAGAIN || recvErr == unix.EWOULDBLOCK || recvErr == unix.EINTR:
		return 0, false, nil
	case recvErr != nil:
		return 0, false, fmt.Errorf("heartbeat recv: %w", recvErr)
	case n == 0:
		return 0, false, io.EOF
	}
	return Signal(buf[0]), true, nil
}

// Drain consumes every pending signal and reports whether a terminate was
// among them. It stops early at a terminate.
func (c *Conn) Drain() (terminate bool, count int, err error) {
	for count < maxDrain {
		sig, ok, err := c.TryRecv()
		if err != nil {
			return false, count, err
		}
		if !ok {
			return false, count, nil
		}
		count++
		if sig == SignalTerminate {
			return true, count, nil
		}
	}
	return false, count, nil
}

func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the link
func (c *Conn) Close() error {
	return c.conn.Close()
}
