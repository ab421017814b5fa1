// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build e2etest

package e2etests

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	localhostTarget = "127.0.0.1"
	// TEST-NET-2, never answers
	blackholeTarget = "198.51.100.2"

	// fast watchdog timings keep unreachable runs short
	testTick      = "50ms"
	testIdleTicks = "4"
)

var (
	cliBinaryPath         string
	cliBinaryOnce         sync.Once
	cliBinaryNeedsCleanup bool
	cliBuildError         string
)

// getCLIBinaryPath returns the path to the CLI binary, building it if necessary
func getCLIBinaryPath(t *testing.T) string {
	cliBinaryOnce.Do(func() {
		projectRoot := filepath.Join("..")
		binaryName := "safeping"

		// check for pre-built binary (i.e. when running in CI)
		preBuiltBinaryPath := filepath.Join(projectRoot, binaryName)
		if _, err := os.Stat(preBuiltBinaryPath); err == nil {
			t.Logf("using pre-built binary: %s", binaryName)
			cliBinaryPath = preBuiltBinaryPath
			return
		}

		t.Logf("pre-built binary not found, running: go build -o %s .", binaryName)
		buildCmd := exec.Command("go", "build", "-o", binaryName, ".")
		buildCmd.Dir = projectRoot
		if out, err := buildCmd.CombinedOutput(); err != nil {
			cliBuildError = fmt.Sprintf("failed to build safeping: %v\nOutput: %s", err, out)
			return
		}
		cliBinaryPath = preBuiltBinaryPath
		cliBinaryNeedsCleanup = true
	})

	if cliBuildError != "" {
		t.Fatal(cliBuildError)
	}
	return cliBinaryPath
}

// cleanupCLI removes the built CLI binary if it was created during tests
func cleanupCLI() {
	if cliBinaryNeedsCleanup && cliBinaryPath != "" {
		if err := os.Remove(cliBinaryPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to remove CLI binary %s: %v\n", cliBinaryPath, err)
		}
	}
}

func requireRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("raw ICMP sockets need root")
	}
}

type runResult struct {
	stdout   string
	stderr   string
	exitCode int
}

func (r runResult) lines() []string {
	out := strings.TrimSpace(r.stdout)
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// newCLICommand prepares the binary with args, verbose when the test is
func newCLICommand(t *testing.T, args ...string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if testing.Verbose() {
		args = append([]string{"--verbose"}, args...)
	}
	t.Logf("running command: safeping %v", args)

	cmd := exec.Command(getCLIBinaryPath(t), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	return cmd, &stdout, &stderr
}

// finish waits for cmd and collects its outcome; a non-zero exit is not an error
func finish(t *testing.T, cmd *exec.Cmd, stdout, stderr *bytes.Buffer, timeout time.Duration) runResult {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		<-done
		t.Fatalf("safeping did not exit within %s\nStdout: %s\nStderr: %s", timeout, stdout, stderr)
	}

	if stderr.Len() > 0 {
		t.Logf("safeping stderr:\n%s", stderr.String())
	}

	res := runResult{stdout: stdout.String(), stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.exitCode = exitErr.ExitCode()
	default:
		t.Fatalf("failed to run safeping: %v", err)
	}
	return res
}

// runCLI runs the binary to completion
func runCLI(t *testing.T, timeout time.Duration, args ...string) runResult {
	t.Helper()
	cmd, stdout, stderr := newCLICommand(t, args...)
	require.NoError(t, cmd.Start())
	return finish(t, cmd, stdout, stderr, timeout)
}

// TestMain provides package-level setup and teardown for all tests.
func TestMain(m *testing.M) {
	exitCode := m.Run()
	cleanupCLI()
	os.Exit(exitCode)
}
