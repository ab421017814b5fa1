// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"time"
)

const (
	// DefaultPollInterval bounds a single wait for socket readiness
	DefaultPollInterval = 100 * time.Millisecond
	minPollInterval     = time.Millisecond
)

// PollDeadline returns the read deadline for one poll attempt starting now.
// A zero interval means DefaultPollInterval; anything shorter than a
// millisecond is rounded up so the poll doesn't degrade into a spin.
func PollDeadline(now time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return now.Add(interval)
}
