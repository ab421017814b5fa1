// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package result defines the outcome of one echo round trip and how it is
// rendered.
package result

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
)

// ProbeResult is one completed echo round trip
type ProbeResult struct {
	// Sequence counts requests from 0. The wire sequence number is its low
	// 16 bits.
	Sequence uint32 `json:"icmp_seq"`
	// Size is the length of the received IP datagram
	Size   int        `json:"bytes"`
	Source netip.Addr `json:"from"`
	TTL    uint8      `json:"ttl"`
	// RTT is the round trip time in milliseconds
	RTT float32 `json:"time_ms"`
	// Local is the address the request left from, when known
	Local netip.Addr `json:"local,omitzero"`
}

// String renders the classic ping reply line
func (r *ProbeResult) String() string {
	return fmt.Sprintf("%d bytes from %s: icmp_seq=%d ttl=%d time=%0.3f ms",
		r.Size, r.Source, r.Sequence, r.TTL, r.RTT)
}

// Header renders the line printed before the first probe
func Header(dst netip.Addr, dataBytes int) string {
	return fmt.Sprintf("ping %s: %d data bytes", dst, dataBytes)
}

// Unreachable renders the notice printed when the watchdog gives up
func Unreachable(dst netip.Addr) string {
	return fmt.Sprintf("Server %s cannot be reached.", dst)
}

// Printer writes results as text lines or as one JSON object per line
type Printer struct {
	w    io.Writer
	json bool
}

func NewPrinter(w io.Writer, asJSON bool) *Printer {
	return &Printer{w: w, json: asJSON}
}

// PrintHeader writes the header line. It is skipped in JSON mode.
func (p *Printer) PrintHeader(dst netip.Addr, dataBytes int) error {
	if p.json {
		return nil
	}
	_, err := fmt.Fprintln(p.w, Header(dst, dataBytes))
	return err
}

func (p *Printer) PrintResult(r *ProbeResult) error {
	if p.json {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode probe result: %w", err)
		}
		_, err = fmt.Fprintln(p.w, string(b))
		return err
	}
	_, err := fmt.Fprintln(p.w, r.String())
	return err
}

// PrintUnreachable writes the unreachable notice; in JSON mode as
// {"unreachable": "<dst>"}.
func (p *Printer) PrintUnreachable(dst netip.Addr) error {
	if p.json {
		b, err := json.Marshal(map[string]string{"unreachable": dst.String()})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(b))
		return err
	}
	_, err := fmt.Fprintln(p.w, Unreachable(dst))
	return err
}
