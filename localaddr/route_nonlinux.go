// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build !linux

package localaddr

import (
	"fmt"
	"net/netip"
)

type RouteInfo struct {
	IfIndex uint32
	PrefSrc netip.Addr
}

func lookupOutboundRoute(_ netip.Addr) (RouteInfo, error) {
	return RouteInfo{}, fmt.Errorf("netlink route lookup unsupported on this platform")
}
