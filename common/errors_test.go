// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode ErrorCode
	}{
		{
			name:         "nil error",
			err:          nil,
			expectedCode: "",
		},
		{
			name:         "destination unreachable",
			err:          fmt.Errorf("probe 5: %w", ErrDestinationUnreachable),
			expectedCode: ErrCodeUnreachable,
		},
		{
			name:         "invalid target",
			err:          &InvalidTargetError{Input: "999.1.1.1", Err: errors.New("bad")},
			expectedCode: ErrCodeInvalidRequest,
		},
		{
			name:         "watchdog failure",
			err:          fmt.Errorf("session: %w", &WatchdogError{Err: errors.New("exited")}),
			expectedCode: ErrCodeWatchdog,
		},
		{
			name:         "context canceled",
			err:          context.Canceled,
			expectedCode: ErrCodeTimeout,
		},
		{
			name:         "context deadline exceeded",
			err:          fmt.Errorf("operation failed: %w", context.DeadlineExceeded),
			expectedCode: ErrCodeTimeout,
		},
		{
			name:         "raw socket without privileges",
			err:          fmt.Errorf("failed to create raw ICMP socket: %w", syscall.EPERM),
			expectedCode: ErrCodeDenied,
		},
		{
			name: "net.OpError with EHOSTUNREACH",
			err: &net.OpError{
				Op:  "sendto",
				Net: "ip4:icmp",
				Err: os.NewSyscallError("sendto", syscall.EHOSTUNREACH),
			},
			expectedCode: ErrCodeHostUnreach,
		},
		{
			name:         "wrapped ENETUNREACH",
			err:          fmt.Errorf("send failed: %w", syscall.ENETUNREACH),
			expectedCode: ErrCodeNetUnreach,
		},
		{
			name:         "unknown syscall error",
			err:          syscall.EINVAL,
			expectedCode: ErrCodeUnknown,
		},
		{
			name:         "generic error",
			err:          errors.New("something went wrong"),
			expectedCode: ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(tt.err)
			if tt.err == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.expectedCode, result.Code)
			assert.Equal(t, tt.err.Error(), result.Message)
			assert.ErrorIs(t, result, tt.err)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"unreachable", ErrDestinationUnreachable, 0},
		{"invalid address", &InvalidTargetError{Input: "nope"}, 0},
		{"watchdog", &WatchdogError{Err: errors.New("no ready byte")}, 1},
		{"permission", fmt.Errorf("socket: %w", syscall.EPERM), int(syscall.EPERM)},
		{"address in use", fmt.Errorf("listen: %w", syscall.EADDRINUSE), int(syscall.EADDRINUSE)},
		{"interrupted", context.Canceled, 1},
		{"generic", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestInvalidTargetErrorMessage(t *testing.T) {
	err := &InvalidTargetError{Input: "1.2.3"}
	assert.Equal(t, "Invalid IP address: 1.2.3", err.Error())
}
