// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package prober sends ICMP echo requests to one destination and matches
// the replies, one cycle at a time.
package prober

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/DataDog/datadog-safeping/common"
	"github.com/DataDog/datadog-safeping/ledger"
	"github.com/DataDog/datadog-safeping/log"
	"github.com/DataDog/datadog-safeping/metrics"
	"github.com/DataDog/datadog-safeping/packets"
	"github.com/DataDog/datadog-safeping/result"
)

const DefaultInterval = time.Second

// ErrDestinationUnreachable is returned by Probe and Run when the kill
// switch fired
var ErrDestinationUnreachable = common.ErrDestinationUnreachable

// Config controls a probe session
type Config struct {
	Destination netip.Addr
	// Identifier goes in every request. Zero means the process id.
	Identifier uint16
	// Payload defaults to common.EchoPayload()
	Payload []byte
	// Interval is the pause between cycles in Run
	Interval time.Duration
	// PollInterval bounds one supervised wait for a datagram
	PollInterval time.Duration
	// Count stops Run after that many results; zero runs until stopped
	Count int
	// AcceptAnyReply completes a cycle on any datagram that decodes,
	// regardless of type, identifier or sequence
	AcceptAnyReply bool
	// VerifyChecksum drops replies whose ICMP checksum is wrong
	VerifyChecksum bool
	// LedgerTTL is how long unanswered requests are remembered
	LedgerTTL time.Duration
	// Source is the local address requests leave from. It is only reported.
	Source    netip.Addr
	SessionID string
}

// Session is one probe session over a single ICMP socket. It is not safe
// for concurrent use.
type Session struct {
	cfg     Config
	conn    packets.Conn
	metrics *metrics.Metrics
	ledger  *ledger.Ledger
	state   State
	seq     uint32
	buf     []byte
}

// NewSession creates a session sending over conn. m may be nil.
func NewSession(cfg Config, conn packets.Conn, m *metrics.Metrics) (*Session, error) {
	if !cfg.Destination.Is4() {
		return nil, fmt.Errorf("destination must be an IPv4 address, got %s", cfg.Destination)
	}
	if cfg.Identifier == 0 {
		cfg.Identifier = uint16(os.Getpid())
	}
	if cfg.Payload == nil {
		cfg.Payload = common.EchoPayload()
	}
	if len(cfg.Payload) > packets.MaxPayloadSize {
		return nil, packets.ErrPayloadTooLarge
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = packets.DefaultPollInterval
	}
	if m == nil {
		m = metrics.NewWithRegistry(nil)
	}
	return &Session{
		cfg:     cfg,
		conn:    conn,
		metrics: m,
		ledger:  ledger.New(cfg.LedgerTTL),
		state:   Idle,
		buf:     make([]byte, packets.MaxIPPacketSize),
	}, nil
}

// State is the phase of the current cycle
func (s *Session) State() State {
	return s.state
}

// Sequence is the sequence of the next request
func (s *Session) Sequence() uint32 {
	return s.seq
}

// Identifier is the ICMP identifier of every request
func (s *Session) Identifier() uint16 {
	return s.cfg.Identifier
}

// PayloadLen is the number of data bytes per request
func (s *Session) PayloadLen() int {
	return len(s.cfg.Payload)
}

// Probe runs one cycle: send a request, then wait for its reply.
//
// With a kill switch every wait is bounded by PollInterval and the switch is
// consulted whenever a wait ends without a matching reply; once it fires,
// Probe returns ErrDestinationUnreachable without sending anything else.
// Without one the wait is unbounded and only ctx can interrupt it.
func (s *Session) Probe(ctx context.Context, kill KillSwitch) (*result.ProbeResult, error) {
	seq := s.seq
	wireSeq := uint16(seq)

	req, err := packets.EncodeEchoRequest(s.cfg.Identifier, wireSeq, s.cfg.Payload)
	if err != nil {
		return nil, err
	}

	sent := time.Now()
	if err := s.conn.WriteTo(req, s.cfg.Destination); err != nil {
		return nil, fmt.Errorf("failed to send echo request icmp_seq=%d: %w", seq, err)
	}
	s.state = RequestSent
	s.seq++
	s.metrics.RecordProbeSent()
	s.ledger.Record(wireSeq, sent)
	log.Tracef("session %s: sent icmp_seq=%d id=%d to %s", s.cfg.SessionID, seq, s.cfg.Identifier, s.cfg.Destination)

	s.state = Waiting
	reply, n, received, err := s.awaitReply(ctx, kill, wireSeq)
	if err != nil {
		return nil, err
	}

	s.state = Completed
	s.ledger.Resolve(wireSeq)
	s.ledger.Prune()

	rtt := received.Sub(sent)
	s.metrics.RecordReply(rtt)
	return &result.ProbeResult{
		Sequence: seq,
		Size:     n,
		Source:   reply.IP.Src,
		TTL:      reply.IP.TTL,
		RTT:      common.ConvertDurationToMs(rtt),
		Local:    s.cfg.Source,
	}, nil
}

func (s *Session) awaitReply(ctx context.Context, kill KillSwitch, seq uint16) (*packets.EchoReply, int, time.Time, error) {
	if kill == nil {
		if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, 0, time.Time{}, fmt.Errorf("failed to clear read deadline: %w", err)
		}
	}
	// wake a pending read when ctx is done
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, time.Time{}, err
		}
		if kill != nil {
			if err := s.conn.SetReadDeadline(packets.PollDeadline(time.Now(), s.cfg.PollInterval)); err != nil {
				return nil, 0, time.Time{}, fmt.Errorf("failed to set read deadline: %w", err)
			}
		}

		n, err := s.conn.ReadPacket(s.buf)
		received := time.Now()
		switch {
		case errors.Is(err, packets.ErrNoPacket):
			s.metrics.RecordPollMiss()
		case err != nil:
			return nil, 0, time.Time{}, fmt.Errorf("failed to receive echo reply: %w", err)
		default:
			if reply, ok := s.match(s.buf[:n], seq); ok {
				return reply, n, received, nil
			}
		}

		if kill == nil {
			continue
		}
		killed, err := kill.Killed()
		if killed {
			log.Debugf("session %s: kill switch fired while waiting for icmp_seq=%d", s.cfg.SessionID, seq)
			if err != nil {
				return nil, 0, time.Time{}, fmt.Errorf("%w: %w", ErrDestinationUnreachable, err)
			}
			return nil, 0, time.Time{}, ErrDestinationUnreachable
		}
		if err != nil {
			return nil, 0, time.Time{}, err
		}
	}
}

// match decodes one datagram and reports whether it completes the cycle
// waiting on seq
func (s *Session) match(raw []byte, seq uint16) (*packets.EchoReply, bool) {
	reply, err := packets.DecodeEchoReply(raw)
	if err != nil {
		s.metrics.RecordDiscard(metrics.ReasonMalformed)
		log.Tracef("session %s: discarding %d byte datagram: %s", s.cfg.SessionID, len(raw), err)
		log.TraceFunc(func() string {
			return hex.Dump(raw)
		})
		return nil, false
	}
	if s.cfg.VerifyChecksum && !reply.ChecksumValid() {
		s.metrics.RecordDiscard(metrics.ReasonChecksum)
		log.Tracef("session %s: discarding reply with bad checksum from %s", s.cfg.SessionID, reply.IP.Src)
		return nil, false
	}
	if s.cfg.AcceptAnyReply {
		return reply, true
	}
	if !reply.IsEchoReply() || reply.ICMP.ID != s.cfg.Identifier {
		s.metrics.RecordDiscard(metrics.ReasonMismatch)
		log.Tracef("session %s: ignoring ICMP type=%d id=%d from %s", s.cfg.SessionID, reply.ICMP.Type, reply.ICMP.ID, reply.IP.Src)
		return nil, false
	}
	if reply.ICMP.Seq != seq {
		if _, late := s.ledger.Resolve(reply.ICMP.Seq); late {
			s.metrics.RecordDiscard(metrics.ReasonLate)
			log.Debugf("session %s: late reply for icmp_seq=%d from %s", s.cfg.SessionID, reply.ICMP.Seq, reply.IP.Src)
		} else {
			s.metrics.RecordDiscard(metrics.ReasonMismatch)
		}
		return nil, false
	}
	return reply, true
}

// Run probes until ctx is done, Count results were produced, or a cycle
// fails. onResult sees every result; an error from it stops the run.
func (s *Session) Run(ctx context.Context, kill KillSwitch, onResult func(*result.ProbeResult) error) error {
	for produced := 0; s.cfg.Count == 0 || produced < s.cfg.Count; produced++ {
		res, err := s.Probe(ctx, kill)
		if err != nil {
			return err
		}
		if err := onResult(res); err != nil {
			return err
		}
		if s.cfg.Count > 0 && produced+1 == s.cfg.Count {
			break
		}
		if err := s.sleep(ctx, kill); err != nil {
			return err
		}
	}
	return nil
}

// sleep waits Interval between cycles. A supervised session keeps
// consulting its kill switch meanwhile so a terminate is not left pending.
func (s *Session) sleep(ctx context.Context, kill KillSwitch) error {
	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	if kill == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			killed, err := kill.Killed()
			if killed {
				if err != nil {
					return fmt.Errorf("%w: %w", ErrDestinationUnreachable, err)
				}
				return ErrDestinationUnreachable
			}
			if err != nil {
				return err
			}
		}
	}
}

// Close releases the socket
func (s *Session) Close() error {
	return s.conn.Close()
}
