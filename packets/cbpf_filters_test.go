// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
)

func runFilter(t *testing.T, raw []bpf.RawInstruction, pkt []byte) int {
	t.Helper()
	insns, ok := bpf.Disassemble(raw)
	require.True(t, ok)
	vm, err := bpf.NewVM(insns)
	require.NoError(t, err)
	n, err := vm.Run(pkt)
	require.NoError(t, err)
	return n
}

func TestEchoReplyFilterWithIdentifier(t *testing.T) {
	filter, err := echoReplyFilter(777)
	require.NoError(t, err)

	matching := echoReplyFrame(t, "8.8.8.8", 60, 777, 1, testPayload)
	require.NotZero(t, runFilter(t, filter, matching))

	otherID := echoReplyFrame(t, "8.8.8.8", 60, 778, 1, testPayload)
	require.Zero(t, runFilter(t, filter, otherID))

	req, err := EncodeEchoRequest(777, 1, testPayload)
	require.NoError(t, err)
	ownRequest := wrapInIPv4(t, "127.0.0.1", "127.0.0.1", 64, req)
	require.Zero(t, runFilter(t, filter, ownRequest))
}

func TestEchoReplyFilterFollowsIPOptions(t *testing.T) {
	filter, err := echoReplyFilter(5)
	require.NoError(t, err)

	inner := echoReplyFrame(t, "192.0.2.1", 9, 5, 2, nil)
	frame := append(append(append([]byte{}, inner[:IPv4HeaderLen]...), 0x01, 0x01, 0x01, 0x01), inner[IPv4HeaderLen:]...)
	frame[0] = 0x46
	require.NotZero(t, runFilter(t, filter, frame))
}

func TestEchoReplyFilterAnyIdentifier(t *testing.T) {
	filter, err := echoReplyFilter(0)
	require.NoError(t, err)

	require.NotZero(t, runFilter(t, filter, echoReplyFrame(t, "8.8.8.8", 60, 1, 1, nil)))
	require.NotZero(t, runFilter(t, filter, echoReplyFrame(t, "8.8.8.8", 60, 65535, 1, nil)))

	req, err := EncodeEchoRequest(1, 1, nil)
	require.NoError(t, err)
	require.Zero(t, runFilter(t, filter, wrapInIPv4(t, "127.0.0.1", "127.0.0.1", 64, req)))
}
