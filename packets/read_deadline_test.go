// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollDeadline(t *testing.T) {
	now := time.Unix(1700000000, 0)

	assert.Equal(t, now.Add(DefaultPollInterval), PollDeadline(now, 0))
	assert.Equal(t, now.Add(DefaultPollInterval), PollDeadline(now, -time.Second))
	assert.Equal(t, now.Add(time.Millisecond), PollDeadline(now, time.Microsecond))
	assert.Equal(t, now.Add(250*time.Millisecond), PollDeadline(now, 250*time.Millisecond))
}
