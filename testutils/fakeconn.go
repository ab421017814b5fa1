// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package testutils

import (
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/DataDog/datadog-safeping/packets"
)

// Responder returns the datagrams a destination sends back for one request
type Responder func(req []byte, dst netip.Addr) [][]byte

// LoopbackResponder answers every echo request from its destination with
// the given ttl
func LoopbackResponder(ttl uint8) Responder {
	return func(req []byte, dst netip.Addr) [][]byte {
		frame := EchoReplyTo(req, dst, dst, ttl)
		if frame == nil {
			return nil
		}
		return [][]byte{frame}
	}
}

// FakeConn is an in-memory packets.Conn honoring read deadlines the way the
// raw socket does: an expired deadline yields packets.ErrNoPacket.
type FakeConn struct {
	mu       sync.Mutex
	respond  Responder
	queue    [][]byte
	writes   [][]byte
	deadline time.Time
	wake     chan struct{}
	closed   bool

	// WriteErr, if set, fails every write
	WriteErr error
}

var _ packets.Conn = &FakeConn{}

// NewFakeConn returns a FakeConn; respond may be nil for a silent destination
func NewFakeConn(respond Responder) *FakeConn {
	return &FakeConn{respond: respond, wake: make(chan struct{})}
}

// notify wakes every pending read. Callers hold mu.
func (c *FakeConn) notify() {
	close(c.wake)
	c.wake = make(chan struct{})
}

// Inject queues a datagram for reading
func (c *FakeConn) Inject(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, frame)
	c.notify()
}

func (c *FakeConn) WriteTo(buf []byte, dst netip.Addr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	if c.WriteErr != nil {
		return c.WriteErr
	}
	req := append([]byte(nil), buf...)
	c.writes = append(c.writes, req)
	if c.respond != nil {
		c.queue = append(c.queue, c.respond(req, dst)...)
		c.notify()
	}
	return nil
}

func (c *FakeConn) ReadPacket(buf []byte) (int, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return 0, net.ErrClosed
		}
		if len(c.queue) > 0 {
			frame := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return copy(buf, frame), nil
		}
		deadline, wake := c.deadline, c.wake
		c.mu.Unlock()

		if deadline.IsZero() {
			<-wake
			continue
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, packets.ErrNoPacket
		}
		timer := time.NewTimer(wait)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
			return 0, packets.ErrNoPacket
		}
	}
}

func (c *FakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	c.notify()
	return nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.notify()
	return nil
}

// Writes returns a copy of every request written so far
func (c *FakeConn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}
