// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Command safeping pings an IPv4 host under the supervision of a heartbeat
// watchdog that gives up on the destination when replies stop.
package main

import (
	"github.com/DataDog/datadog-safeping/cmd"
)

func main() {
	cmd.Execute()
}
