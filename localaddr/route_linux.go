// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package localaddr

import (
	"fmt"
	"math"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
)

// RouteInfo is the kernel's answer for one destination
type RouteInfo struct {
	IfIndex uint32
	PrefSrc netip.Addr
}

type routeGetFunc func(dst net.IP) ([]netlink.Route, error)

var routeGet routeGetFunc = netlink.RouteGet

func lookupOutboundRoute(dst netip.Addr) (RouteInfo, error) {
	routes, err := routeGet(net.IP(dst.AsSlice()))
	if err != nil {
		return RouteInfo{}, fmt.Errorf("netlink route lookup failed: %w", err)
	}
	for _, r := range routes {
		ifIndex, err := toUint32IfIndex(r.LinkIndex)
		if err != nil {
			return RouteInfo{}, err
		}
		prefSrc, ok := routeSourceIP(r)
		if !ok {
			continue
		}
		return RouteInfo{IfIndex: ifIndex, PrefSrc: prefSrc}, nil
	}
	return RouteInfo{}, fmt.Errorf("no valid route found for %s", dst)
}

func routeSourceIP(r netlink.Route) (netip.Addr, bool) {
	if len(r.Src) == 0 {
		return netip.Addr{}, false
	}
	addr, ok := netip.AddrFromSlice(r.Src)
	if !ok {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func toUint32IfIndex(idx int) (uint32, error) {
	switch {
	case idx < 0:
		return uint32(uint64(idx) & math.MaxUint32), nil
	case idx > math.MaxUint32:
		return 0, fmt.Errorf("link index %d overflows uint32", idx)
	default:
		return uint32(idx), nil
	}
}
