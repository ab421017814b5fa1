// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package e2etests runs the safeping binary end to end: a supervised session
// spawns its watchdog as a real child process. Tests that open raw sockets
// or network namespaces skip unless run as root. Build with -tags e2etest.
package e2etests
