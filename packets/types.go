// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package packets builds and parses ICMP echo datagrams and owns the raw
// socket they travel on.
package packets

import (
	"errors"
	"net/netip"
	"time"
)

//go:generate mockgen -source=types.go -destination=mock_packets.go -package=packets

// ErrNoPacket means no datagram arrived before the read deadline. It is the
// normal outcome of a poll, not a failure.
var ErrNoPacket = errors.New("no packet available")

// Conn is an ICMP socket. Reads return the whole IPv4 datagram, header
// included; writes take an ICMP message without IP header.
type Conn interface {
	// WriteTo sends an ICMP message to addr
	WriteTo(buf []byte, addr netip.Addr) error
	// ReadPacket reads one datagram into buf. It returns ErrNoPacket if the
	// read deadline passes first.
	ReadPacket(buf []byte) (int, error)
	// SetReadDeadline bounds the next ReadPacket. The zero time blocks forever.
	SetReadDeadline(t time.Time) error
	// Close closes the socket
	Close() error
}

// FilterSpec selects which datagrams the kernel hands to a Conn.
type FilterSpec struct {
	// EchoReplyOnly drops everything but ICMP echo replies
	EchoReplyOnly bool
	// Identifier, when EchoReplyOnly is set, also drops replies whose ICMP
	// identifier differs. Zero disables the identifier check.
	Identifier uint16
}

// ConnOptions configures NewConn
type ConnOptions struct {
	// Filter is attached to the socket when EchoReplyOnly is set
	Filter FilterSpec
}
