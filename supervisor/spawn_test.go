// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package supervisor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-safeping/watchdog"
)

func newPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestAwaitReadyByte(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		r, w := newPipe(t)
		_, err := w.Write([]byte{watchdog.ReadyByte})
		require.NoError(t, err)
		assert.NoError(t, awaitReadyByte(context.Background(), r, time.Second))
	})

	t.Run("writer exits first", func(t *testing.T) {
		r, w := newPipe(t)
		require.NoError(t, w.Close())
		err := awaitReadyByte(context.Background(), r, time.Second)
		assert.ErrorIs(t, err, ErrWatchdogUnresponsive)
	})

	t.Run("silent writer", func(t *testing.T) {
		r, _ := newPipe(t)
		start := time.Now()
		err := awaitReadyByte(context.Background(), r, 50*time.Millisecond)
		assert.ErrorIs(t, err, ErrWatchdogUnresponsive)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("unexpected byte", func(t *testing.T) {
		r, w := newPipe(t)
		_, err := w.Write([]byte{'x'})
		require.NoError(t, err)
		assert.ErrorIs(t, awaitReadyByte(context.Background(), r, time.Second), ErrWatchdogUnresponsive)
	})

	t.Run("canceled", func(t *testing.T) {
		r, _ := newPipe(t)
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		assert.ErrorIs(t, awaitReadyByte(ctx, r, 0), context.Canceled)
	})
}

func TestWatchdogArgs(t *testing.T) {
	args := WatchdogArgs(SpawnOptions{
		Watchdog: watchdog.Config{
			Address:       "127.0.0.1:3000",
			TickPeriod:    time.Second,
			IdleDeadline:  10,
			AcceptTimeout: 500 * time.Millisecond,
			SessionID:     "abc",
		},
		LogLevel: "debug",
	})
	assert.Equal(t, []string{
		"watchdog",
		"--addr", "127.0.0.1:3000",
		"--tick", "1s",
		"--idle-ticks", "10",
		"--accept-timeout", "500ms",
		"--ready-fd", "3",
		"--session", "abc",
		"--log-level", "debug",
	}, args)
}

func TestExecSpawnerChildExitsBeforeReady(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	// sh treats "watchdog" as a script name it cannot open and exits
	spawner := &ExecSpawner{Path: sh, Stdout: io.Discard, Stderr: io.Discard}

	proc, err := spawner.Spawn(context.Background(), SpawnOptions{Watchdog: watchdog.DefaultConfig()})
	require.NoError(t, err)

	err = proc.Ready(context.Background(), 5*time.Second)
	assert.ErrorIs(t, err, ErrWatchdogUnresponsive)

	waitErr := proc.Wait()
	var exitErr *exec.ExitError
	assert.ErrorAs(t, waitErr, &exitErr)
	assert.Equal(t, waitErr, proc.Wait(), "second Wait returns the first result")
}

func TestExecSpawnerMissingBinary(t *testing.T) {
	spawner := &ExecSpawner{Path: "/nonexistent/safeping"}
	_, err := spawner.Spawn(context.Background(), SpawnOptions{Watchdog: watchdog.DefaultConfig()})
	assert.Error(t, err)
}
