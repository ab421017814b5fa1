// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package localaddr

import (
	"errors"
	"math"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

func stubRouteGet(t *testing.T, fn routeGetFunc) {
	t.Helper()
	originalRouteGet := routeGet
	t.Cleanup(func() { routeGet = originalRouteGet })
	routeGet = fn
}

func TestLookupOutboundRouteHandlesLargeIfIndex(t *testing.T) {
	const largeIndex = uint32(1<<31) + 5
	stubRouteGet(t, func(dst net.IP) ([]netlink.Route, error) {
		return []netlink.Route{{
			LinkIndex: int(largeIndex),
			Src:       net.ParseIP("192.0.2.10"),
		}}, nil
	})

	info, err := lookupOutboundRoute(netip.MustParseAddr("203.0.113.1"))
	require.NoError(t, err)
	require.Equal(t, largeIndex, info.IfIndex)
	require.Equal(t, netip.MustParseAddr("192.0.2.10"), info.PrefSrc)
}

func TestLookupOutboundRouteRejectsOverflowingIndex(t *testing.T) {
	stubRouteGet(t, func(dst net.IP) ([]netlink.Route, error) {
		return []netlink.Route{{
			LinkIndex: int(math.MaxUint32) + 1,
			Src:       net.ParseIP("192.0.2.10"),
		}}, nil
	})

	_, err := lookupOutboundRoute(netip.MustParseAddr("203.0.113.1"))
	require.Error(t, err)
}

func TestLookupOutboundRouteSkipsRoutesWithoutSource(t *testing.T) {
	stubRouteGet(t, func(dst net.IP) ([]netlink.Route, error) {
		return []netlink.Route{{LinkIndex: 1}}, nil
	})

	_, err := lookupOutboundRoute(netip.MustParseAddr("203.0.113.1"))
	require.Error(t, err)
}

func TestSourceForFallsBackWhenRouteFails(t *testing.T) {
	stubRouteGet(t, func(dst net.IP) ([]netlink.Route, error) {
		return nil, errors.New("boom")
	})

	src, err := SourceFor(netip.MustParseAddr("127.0.0.1"))
	require.NoError(t, err)
	require.True(t, src.IsLoopback())
}

func TestSourceForUsesRouteSource(t *testing.T) {
	stubRouteGet(t, func(dst net.IP) ([]netlink.Route, error) {
		return []netlink.Route{{
			LinkIndex: 2,
			Src:       net.ParseIP("192.0.2.7"),
		}}, nil
	})

	src, err := SourceFor(netip.MustParseAddr("203.0.113.1"))
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("192.0.2.7"), src)
}
