// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package watchdog

import "github.com/DataDog/datadog-safeping/heartbeat"

// LivenessState is where the watchdog is in its lifecycle
type LivenessState int

const (
	// Listening is the state before the endpoint is bound
	Listening LivenessState = iota
	AwaitingConnection
	Monitoring
	Terminated
)

func (s LivenessState) String() string {
	switch s {
	case Listening:
		return "listening"
	case AwaitingConnection:
		return "awaiting-connection"
	case Monitoring:
		return "monitoring"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Report is a snapshot of the monitoring loop
type Report struct {
	State LivenessState
	// Ticks is the number of liveness evaluations done so far
	Ticks int
	// IdleTicks counts consecutive evaluations with nothing received
	IdleTicks int
	// Resets counts bytes received from the prober other than '-'
	Resets int
	// LastSign is echoed back on every idle tick
	LastSign        heartbeat.Signal
	FinalSignalSent bool
}
