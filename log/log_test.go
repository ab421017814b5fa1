// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []LogLevel{LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace} {
		t.Run(lvl.String(), func(t *testing.T) {
			got, err := ParseLogLevel(lvl.String())
			require.NoError(t, err)
			require.Equal(t, lvl, got)
		})
	}

	for _, input := range []string{"INFO", "verbose", "", "3"} {
		t.Run("rejects "+input, func(t *testing.T) {
			_, err := ParseLogLevel(input)
			require.Error(t, err)
		})
	}
}

func TestLogLevelOrder(t *testing.T) {
	require.Less(t, LevelError, LevelWarn)
	require.Less(t, LevelWarn, LevelInfo)
	require.Less(t, LevelInfo, LevelDebug)
	require.Less(t, LevelDebug, LevelTrace)
	require.Equal(t, "LogLevel(42)", LogLevel(42).String())
}

func TestWatchdogPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetPrefix("[watchdog] ")
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetPrefix("")
	})

	Infof("no heartbeat for %d ticks", 10)
	require.True(t, strings.HasPrefix(buf.String(), "[watchdog] "), buf.String())
	require.Contains(t, buf.String(), "[INFO] no heartbeat for 10 ticks")
}

func TestTracefFormatsArguments(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := GetLogLevel()
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLogLevel(prev)
	})

	SetVerbose(true)
	Tracef("tick %d: idle %d/%d", 7, 3, 10)
	require.Contains(t, buf.String(), "[TRACE] tick 7: idle 3/10")
}

func TestTraceFuncIsLazy(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := GetLogLevel()
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLogLevel(prev)
	})

	called := false
	SetLogLevel(LevelDebug)
	TraceFunc(func() string {
		called = true
		return "dump"
	})
	require.False(t, called)
	require.Empty(t, buf.String())

	SetVerbose(true)
	TraceFunc(func() string { return "dump" })
	require.Contains(t, buf.String(), "[TRACEFUNC] dump")

	SetVerbose(false)
	require.Equal(t, LevelInfo, GetLogLevel())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := GetLogLevel()
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLogLevel(prev)
	})

	SetLogLevel(LevelInfo)
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	require.NotContains(t, buf.String(), "hidden 1")
	require.Contains(t, buf.String(), "[INFO] shown 2")

	buf.Reset()
	SetVerbose(true)
	Tracef("sent icmp_seq=%d", 7)
	require.Contains(t, buf.String(), "[TRACE] sent icmp_seq=7")
}

func TestWarnfReturnsError(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	err := Warnf("heartbeat lost: %s", "EOF")
	require.EqualError(t, err, "heartbeat lost: EOF")
	require.Contains(t, buf.String(), "[WARN] heartbeat lost: EOF")
}
