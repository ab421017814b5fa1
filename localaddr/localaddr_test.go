// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package localaddr

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceForLoopback(t *testing.T) {
	src, err := SourceFor(netip.MustParseAddr("127.0.0.1"))
	require.NoError(t, err)
	assert.True(t, src.IsLoopback(), "source %s should be loopback", src)
	assert.True(t, src.Is4())
}

func TestSourceForRejectsIPv6(t *testing.T) {
	_, err := SourceFor(netip.MustParseAddr("::1"))
	assert.Error(t, err)
}

func TestNormalizeLoopback(t *testing.T) {
	loopback := netip.MustParseAddr("127.0.0.1")
	other := netip.MustParseAddr("192.0.2.1")

	assert.Equal(t, loopback, normalizeLoopback(loopback, other))
	assert.Equal(t, other, normalizeLoopback(netip.MustParseAddr("203.0.113.1"), other))
	assert.Equal(t, netip.MustParseAddr("127.0.0.5"), normalizeLoopback(loopback, netip.MustParseAddr("127.0.0.5")))
}
