// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package heartbeat implements the one-byte liveness link between the prober
// and its watchdog: a single loopback TCP connection on which every message
// is exactly one byte, so no framing is needed.
package heartbeat

import "fmt"

// Signal is one heartbeat message
type Signal byte

const (
	// SignalNone is the watchdog's echo value before it has heard anything
	SignalNone Signal = 0x00
	// SignalAlive resets the watchdog's idle timer
	SignalAlive Signal = '+'
	// SignalTerminate tells the peer to shut down now
	SignalTerminate Signal = '-'
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "NUL"
	case SignalAlive:
		return "alive(+)"
	case SignalTerminate:
		return "terminate(-)"
	default:
		return fmt.Sprintf("0x%02x", byte(s))
	}
}
