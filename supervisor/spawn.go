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
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/DataDog/datadog-safeping/watchdog"
)

// ErrWatchdogUnresponsive means the watchdog never reported it was listening
var ErrWatchdogUnresponsive = errors.New("watchdog did not become ready")

// readyFD is the child's descriptor for the ready pipe, the first of ExtraFiles
const readyFD = 3

// SpawnOptions is what a watchdog needs to know at startup
type SpawnOptions struct {
	Watchdog watchdog.Config
	LogLevel string
}

// Process is a running watchdog
type Process interface {
	// Ready waits at most timeout for the watchdog to listen
	Ready(ctx context.Context, timeout time.Duration) error
	// Addr is where the watchdog listens
	Addr() string
	// Wait reaps the watchdog. Only the first call waits.
	Wait() error
	Kill() error
}

// Spawner starts watchdogs
type Spawner interface {
	Spawn(ctx context.Context, opts SpawnOptions) (Process, error)
}

// ExecSpawner re-executes a binary in watchdog mode. The child reports
// readiness by writing watchdog.ReadyByte to descriptor 3.
type ExecSpawner struct {
	// Path defaults to the running executable
	Path   string
	Stdout io.Writer
	Stderr io.Writer
}

// WatchdogArgs are the command line arguments of a watchdog child
func WatchdogArgs(opts SpawnOptions) []string {
	args := []string{
		"watchdog",
		"--addr", opts.Watchdog.Address,
		"--tick", opts.Watchdog.TickPeriod.String(),
		"--idle-ticks", strconv.Itoa(opts.Watchdog.IdleDeadline),
		"--accept-timeout", opts.Watchdog.AcceptTimeout.String(),
		"--ready-fd", strconv.Itoa(readyFD),
	}
	if opts.Watchdog.SessionID != "" {
		args = append(args, "--session", opts.Watchdog.SessionID)
	}
	if opts.LogLevel != "" {
		args = append(args, "--log-level", opts.LogLevel)
	}
	return args
}

func (s *ExecSpawner) Spawn(ctx context.Context, opts SpawnOptions) (Process, error) {
	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, errors.Wrap(err, "failed to locate own executable")
		}
		path = exe
	}

	readyR, readyW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ready pipe")
	}

	cmd := exec.Command(path, WatchdogArgs(opts)...)
	cmd.ExtraFiles = []*os.File{readyW}
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		readyR.Close()
		readyW.Close()
		return nil, errors.Wrapf(err, "failed to start watchdog %s", path)
	}
	// only the child may hold the write end, so its exit reads as EOF
	readyW.Close()

	return &execProcess{cmd: cmd, ready: readyR, addr: opts.Watchdog.Address}, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	ready *os.File
	addr  string

	waitOnce sync.Once
	waitErr  error
}

func (p *execProcess) Ready(ctx context.Context, timeout time.Duration) error {
	defer p.ready.Close()
	return awaitReadyByte(ctx, p.ready, timeout)
}

// awaitReadyByte reads the single ready byte from r
func awaitReadyByte(ctx context.Context, r *os.File, timeout time.Duration) error {
	if timeout > 0 {
		if err := r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return errors.Wrap(err, "failed to set ready deadline")
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = r.SetReadDeadline(time.Now())
	})
	defer stop()

	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errors.Wrapf(ErrWatchdogUnresponsive, "no ready signal after %s", timeout)
	case errors.Is(err, io.EOF):
		return errors.Wrap(ErrWatchdogUnresponsive, "watchdog exited before listening")
	case err != nil:
		return errors.Wrap(err, "failed to read ready signal")
	case buf[0] != watchdog.ReadyByte:
		return errors.Wrapf(ErrWatchdogUnresponsive, "unexpected ready byte 0x%02x", buf[0])
	}
	return nil
}

func (p *execProcess) Addr() string {
	return p.addr
}

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}
