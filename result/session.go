// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package result

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// NewSessionID returns a random id tying the prober and watchdog log lines
// of one session together. It is a base64 encoded UUID to keep lines short.
func NewSessionID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
