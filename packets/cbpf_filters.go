// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"fmt"

	"golang.org/x/net/bpf"
)

// acceptLen is what a cBPF program returns to keep the whole packet
const acceptLen = 0x40000

// echoReplyFilter returns a classic BPF program for a raw IPv4 ICMP socket,
// where packet data starts at the IP header. It keeps ICMP echo replies and,
// when identifier is non-zero, only those carrying that identifier. Same
// shape as iputils ping's filter.
func echoReplyFilter(identifier uint16) ([]bpf.RawInstruction, error) {
	var prog []bpf.Instruction
	if identifier == 0 {
		prog = []bpf.Instruction{
			// X = IP header length
			bpf.LoadMemShift{Off: 0},
			bpf.LoadIndirect{Off: 0, Size: 1},
			bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: 0, SkipTrue: 1},
			bpf.RetConstant{Val: acceptLen},
			bpf.RetConstant{Val: 0},
		}
	} else {
		prog = []bpf.Instruction{
			bpf.LoadMemShift{Off: 0},
			bpf.LoadIndirect{Off: 0, Size: 1},
			bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: 0, SkipTrue: 3},
			bpf.LoadIndirect{Off: 4, Size: 2},
			bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(identifier), SkipTrue: 1},
			bpf.RetConstant{Val: acceptLen},
			bpf.RetConstant{Val: 0},
		}
	}

	raw, err := bpf.Assemble(prog)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble echo reply filter: %w", err)
	}
	return raw, nil
}
