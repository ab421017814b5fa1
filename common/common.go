// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package common contains functionality shared by the prober, the watchdog
// and the CLI
package common

import (
	"fmt"
	"net/netip"
	"time"
)

// EchoText is the echo request payload before its terminating NUL
const EchoText = "This is the ping \n"

// EchoPayload returns the echo request payload, NUL terminated
func EchoPayload() []byte {
	return append([]byte(EchoText), 0)
}

// ParseDestination parses a dotted-quad IPv4 address
func ParseDestination(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, &InvalidTargetError{Input: s, Err: err}
	}
	if !addr.Is4() {
		return netip.Addr{}, &InvalidTargetError{Input: s, Err: fmt.Errorf("not an IPv4 address")}
	}
	return addr, nil
}

// UnmappedAddrFromSlice is the same as netip.AddrFromSlice but it also gets rid of mapped ipv6 addresses.
func UnmappedAddrFromSlice(slice []byte) (netip.Addr, bool) {
	addr, ok := netip.AddrFromSlice(slice)
	return addr.Unmap(), ok
}

// ConvertDurationToMs returns d in fractional milliseconds
func ConvertDurationToMs(d time.Duration) float32 {
	return float32(d.Seconds() * 1000)
}
