// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build e2etest && linux

package e2etests

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-safeping/testutils"
)

// runInLoopbackNS runs the binary inside a namespace where only loopback exists
func runInLoopbackNS(t *testing.T, args ...string) runResult {
	t.Helper()
	requireRoot(t)

	ns, err := testutils.NewLoopbackNS()
	require.NoError(t, err)
	defer ns.Close()

	cmd, stdout, stderr := newCLICommand(t, args...)
	// the child inherits the namespace of the thread that forks it
	require.NoError(t, testutils.WithNS(ns, cmd.Start))
	return finish(t, cmd, stdout, stderr, 30*time.Second)
}

func TestLoopbackNamespaceSupervised(t *testing.T) {
	res := runInLoopbackNS(t, "--count", "2", "--interval", "100ms", "--tick", "100ms", localhostTarget)
	require.Equal(t, 0, res.exitCode)
	lines := res.lines()
	require.Len(t, lines, 3, res.stdout)
	assert.Regexp(t, replyLine, lines[1])
}

func TestLoopbackNamespaceNoRoute(t *testing.T) {
	res := runInLoopbackNS(t, "plain", "10.0.0.1")
	assert.Equal(t, int(syscall.ENETUNREACH), res.exitCode)
	assert.Contains(t, res.stderr, "network is unreachable")
}
