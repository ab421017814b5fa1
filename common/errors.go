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
	"syscall"
)

// ErrorCode is a coarse classification of a session failure
type ErrorCode string

const (
	// ErrCodeTimeout indicates the operation timed out or was interrupted.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnreachable indicates the watchdog gave up on the destination.
	ErrCodeUnreachable ErrorCode = "UNREACHABLE"
	// ErrCodeHostUnreach indicates the kernel reported the host unreachable.
	ErrCodeHostUnreach ErrorCode = "HOSTUNREACH"
	// ErrCodeNetUnreach indicates the kernel reported the network unreachable.
	ErrCodeNetUnreach ErrorCode = "NETUNREACH"
	// ErrCodeDenied indicates a permission error, usually a missing CAP_NET_RAW.
	ErrCodeDenied ErrorCode = "DENIED"
	// ErrCodeInvalidRequest indicates bad parameters from the caller.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeWatchdog indicates the watchdog failed to start or ended abnormally.
	ErrCodeWatchdog ErrorCode = "WATCHDOG"
	// ErrCodeUnknown is the catch-all for unclassified errors.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// ErrDestinationUnreachable is returned when the watchdog ended the session.
// It is a normal outcome.
var ErrDestinationUnreachable = errors.New("destination unreachable")

// ClassifiedError is an error with its ErrorCode attached
type ClassifiedError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ClassifiedError) Error() string {
	return e.Message
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// InvalidTargetError is an unparseable destination
type InvalidTargetError struct {
	Input string
	Err   error
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("Invalid IP address: %s", e.Input)
}

func (e *InvalidTargetError) Unwrap() error {
	return e.Err
}

// WatchdogError marks a failure of the watchdog process itself
type WatchdogError struct {
	Err error
}

func (e *WatchdogError) Error() string {
	return fmt.Sprintf("watchdog failure: %s", e.Err)
}

func (e *WatchdogError) Unwrap() error {
	return e.Err
}

// ClassifyError inspects an error chain and returns a ClassifiedError with the appropriate code.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrDestinationUnreachable) {
		return &ClassifiedError{Code: ErrCodeUnreachable, Message: err.Error(), Err: err}
	}

	var invalidTargetErr *InvalidTargetError
	if errors.As(err, &invalidTargetErr) {
		return &ClassifiedError{Code: ErrCodeInvalidRequest, Message: err.Error(), Err: err}
	}

	var watchdogErr *WatchdogError
	if errors.As(err, &watchdogErr) {
		return &ClassifiedError{Code: ErrCodeWatchdog, Message: err.Error(), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ClassifiedError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var errno syscall.Errno
		if errors.As(opErr.Err, &errno) {
			return classifySyscallError(errno, err)
		}
		if opErr.Timeout() {
			return &ClassifiedError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return classifySyscallError(errno, err)
	}

	return &ClassifiedError{Code: ErrCodeUnknown, Message: err.Error(), Err: err}
}

func classifySyscallError(errno syscall.Errno, original error) *ClassifiedError {
	switch errno {
	case syscall.EHOSTUNREACH:
		return &ClassifiedError{Code: ErrCodeHostUnreach, Message: original.Error(), Err: original}
	case syscall.ENETUNREACH:
		return &ClassifiedError{Code: ErrCodeNetUnreach, Message: original.Error(), Err: original}
	case syscall.EACCES, syscall.EPERM:
		return &ClassifiedError{Code: ErrCodeDenied, Message: original.Error(), Err: original}
	case syscall.ETIMEDOUT:
		return &ClassifiedError{Code: ErrCodeTimeout, Message: original.Error(), Err: original}
	default:
		return &ClassifiedError{Code: ErrCodeUnknown, Message: original.Error(), Err: original}
	}
}

// ExitCode maps the outcome of a session to a process exit status. An
// unreachable destination and an invalid address are informational and exit
// 0. Syscall failures exit with their errno.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch ClassifyError(err).Code {
	case ErrCodeUnreachable, ErrCodeInvalidRequest:
		return 0
	case ErrCodeWatchdog:
		return 1
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}
