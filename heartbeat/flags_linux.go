// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package heartbeat

import "golang.org/x/sys/unix"

// a peer that went away must surface as EPIPE, not SIGPIPE
const sendFlags = unix.MSG_DONTWAIT | unix.MSG_NOSIGNAL
