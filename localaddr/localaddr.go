// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package localaddr finds the source address the kernel will use to reach a
// destination.
package localaddr

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/DataDog/datadog-safeping/log"
)

// discardPort is only used to connect a UDP socket; nothing is ever sent
const discardPort = 9

// SourceFor returns the local IPv4 address used to reach dst. The routing
// table is asked first; if that fails a connected UDP socket is used.
func SourceFor(dst netip.Addr) (netip.Addr, error) {
	if !dst.Is4() {
		return netip.Addr{}, fmt.Errorf("source lookup supports only IPv4, got %s", dst)
	}

	route, err := lookupOutboundRoute(dst)
	if err == nil {
		return normalizeLoopback(dst, route.PrefSrc), nil
	}
	log.Debugf("route lookup for %s failed, falling back to dial: %s", dst, err)

	src, err := sourceViaDial(dst)
	if err != nil {
		return netip.Addr{}, err
	}
	return normalizeLoopback(dst, src), nil
}

func sourceViaDial(dst netip.Addr) (netip.Addr, error) {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(netip.AddrPortFrom(dst, discardPort)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to determine source for %s: %w", dst, err)
	}
	defer conn.Close()

	localUDPAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.Addr{}, fmt.Errorf("invalid address type for %s: want %T, got %T", conn.LocalAddr(), &net.UDPAddr{}, conn.LocalAddr())
	}
	return localUDPAddr.AddrPort().Addr().Unmap(), nil
}

// On some platforms a loopback destination still reports a non-loopback
// source. Force loopback so the reported path matches the packets.
func normalizeLoopback(dst, src netip.Addr) netip.Addr {
	if dst.IsLoopback() && !src.IsLoopback() {
		return netip.AddrFrom4([4]byte{127, 0, 0, 1})
	}
	return src
}
