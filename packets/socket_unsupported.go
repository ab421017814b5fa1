// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build !linux

package packets

import (
	"fmt"
	"runtime"
)

// NewConn returns an ICMP Conn for this platform
func NewConn(_ ConnOptions) (Conn, error) {
	return nil, fmt.Errorf("NewConn: raw ICMP sockets are not supported on %s", runtime.GOOS)
}
