// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package prober

// State is the phase of the current probe cycle
type State int

const (
	// Idle is the state before the first request
	Idle State = iota
	RequestSent
	Waiting
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestSent:
		return "request-sent"
	case Waiting:
		return "waiting"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// KillSwitch is consulted while a probe waits for its reply. Killed reports
// true once the session must stop; err carries the reason when it isn't a
// clean terminate signal.
type KillSwitch interface {
	Killed() (bool, error)
}

// KillSwitchFunc adapts a function to KillSwitch
type KillSwitchFunc func() (bool, error)

func (f KillSwitchFunc) Killed() (bool, error) {
	return f()
}
