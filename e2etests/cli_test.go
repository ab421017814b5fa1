// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build e2etest

package e2etests

import (
	"encoding/json"
	"net"
	"os"
	"regexp"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-safeping/result"
)

var replyLine = regexp.MustCompile(`^47 bytes from 127\.0\.0\.1: icmp_seq=(\d+) ttl=64 time=\d+\.\d{3} ms$`)

func TestUsage(t *testing.T) {
	res := runCLI(t, 10*time.Second)
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stdout+res.stderr, "Usage:")

	res = runCLI(t, 10*time.Second, "127.0.0.1", "127.0.0.2")
	assert.Equal(t, 1, res.exitCode)
}

func TestInvalidAddress(t *testing.T) {
	for _, target := range []string{"not-an-ip", "300.1.1.1", "::1"} {
		t.Run(target, func(t *testing.T) {
			res := runCLI(t, 10*time.Second, target)
			assert.Equal(t, 0, res.exitCode)
			assert.Contains(t, res.stderr, "Invalid IP address: "+target)
			assert.Empty(t, res.stdout)
		})
	}
}

func TestVersion(t *testing.T) {
	res := runCLI(t, 10*time.Second, "version")
	assert.Equal(t, 0, res.exitCode)
	assert.Contains(t, res.stdout, "Version: ")
}

func TestSupervisedIntervalShorterThanTick(t *testing.T) {
	res := runCLI(t, 10*time.Second, "--interval", "100ms", "--tick", "200ms", localhostTarget)
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stderr, "probe.interval (100ms) must not be shorter than watchdog.tick (200ms)")
	assert.Empty(t, res.stdout)
}

func TestSupervisedLocalhost(t *testing.T) {
	requireRoot(t)

	res := runCLI(t, 30*time.Second,
		"--count", "3",
		"--interval", "100ms",
		"--tick", "100ms",
		"--watchdog-addr", "127.0.0.1:3101",
		localhostTarget,
	)
	require.Equal(t, 0, res.exitCode)

	lines := res.lines()
	require.Len(t, lines, 4, res.stdout)
	assert.Equal(t, "ping 127.0.0.1: 19 data bytes", lines[0])
	for i, line := range lines[1:] {
		m := replyLine.FindStringSubmatch(line)
		require.NotNil(t, m, line)
		assert.Equal(t, []string{line, string(rune('0' + i))}, m)
	}
}

func TestSupervisedLocalhostJSON(t *testing.T) {
	requireRoot(t)

	res := runCLI(t, 30*time.Second,
		"--count", "2",
		"--interval", "100ms",
		"--tick", "100ms",
		"--json",
		"--watchdog-addr", "127.0.0.1:3102",
		localhostTarget,
	)
	require.Equal(t, 0, res.exitCode)

	lines := res.lines()
	require.Len(t, lines, 2, res.stdout)
	for i, line := range lines {
		var r result.ProbeResult
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		assert.Equal(t, uint32(i), r.Sequence)
		assert.Equal(t, 47, r.Size)
		assert.Equal(t, uint8(64), r.TTL)
		assert.Equal(t, localhostTarget, r.Source.String())
	}
}

func TestSupervisedUnreachable(t *testing.T) {
	requireRoot(t)

	res := runCLI(t, 30*time.Second,
		"--tick", testTick,
		"--idle-ticks", testIdleTicks,
		"--watchdog-addr", "127.0.0.1:3103",
		blackholeTarget,
	)
	if res.exitCode == int(syscall.ENETUNREACH) {
		t.Skip("no route to the blackhole target on this host")
	}
	require.Equal(t, 0, res.exitCode)
	assert.Equal(t, []string{
		"ping 198.51.100.2: 19 data bytes",
		"Server 198.51.100.2 cannot be reached.",
	}, res.lines())
}

func TestWatchdogAddressBusy(t *testing.T) {
	requireRoot(t)

	busy, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	res := runCLI(t, 30*time.Second,
		"--watchdog-addr", busy.Addr().String(),
		localhostTarget,
	)
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stderr, "watchdog failure")
	assert.Empty(t, res.stdout)
}

func TestInterruptStopsSession(t *testing.T) {
	requireRoot(t)

	cmd, stdout, stderr := newCLICommand(t,
		"--interval", "100ms",
		"--tick", "100ms",
		"--watchdog-addr", "127.0.0.1:3105",
		localhostTarget,
	)
	require.NoError(t, cmd.Start())
	time.Sleep(500 * time.Millisecond)
	require.NoError(t, cmd.Process.Signal(os.Interrupt))

	res := finish(t, cmd, stdout, stderr, 30*time.Second)
	assert.Equal(t, 0, res.exitCode)
	lines := res.lines()
	require.GreaterOrEqual(t, len(lines), 2, res.stdout)
	assert.Regexp(t, replyLine, lines[1])
}

func TestPlainLocalhost(t *testing.T) {
	requireRoot(t)

	res := runCLI(t, 30*time.Second, "plain", "--count", "2", "--interval", "100ms", localhostTarget)
	require.Equal(t, 0, res.exitCode)

	lines := res.lines()
	require.Len(t, lines, 3, res.stdout)
	assert.Regexp(t, replyLine, lines[1])
	assert.Regexp(t, replyLine, lines[2])
}
