// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package metrics provides Prometheus metrics for safeping.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "safeping"

// discard reasons for RecordDiscard
const (
	ReasonMalformed = "malformed"
	ReasonChecksum  = "checksum"
	ReasonMismatch  = "mismatch"
	ReasonLate      = "late"
)

// Metrics holds every collector of one process. Both the prober and the
// watchdog use the same set; each only moves its own series.
type Metrics struct {
	// Prober
	ProbesSent       prometheus.Counter
	RepliesReceived  prometheus.Counter
	MalformedPackets prometheus.Counter
	RepliesDiscarded *prometheus.CounterVec
	RoundTripTime    prometheus.Histogram
	PollMisses       prometheus.Counter

	// Heartbeat link
	HeartbeatsSent     *prometheus.CounterVec
	HeartbeatsReceived *prometheus.CounterVec

	// Watchdog
	WatchdogTicks     prometheus.Counter
	WatchdogIdleTicks prometheus.Gauge
	WatchdogResets    prometheus.Counter
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the process-wide instance registered with the default registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewWithRegistry creates a Metrics instance registered with reg. A nil reg
// leaves the collectors unregistered.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ProbesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_sent_total",
			Help:      "Total echo requests sent",
		}),
		RepliesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_received_total",
			Help:      "Total echo replies matched to a probe",
		}),
		MalformedPackets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_packets_total",
			Help:      "Total datagrams that failed to decode",
		}),
		RepliesDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_discarded_total",
			Help:      "Total received datagrams discarded, by reason",
		}, []string{"reason"}),
		RoundTripTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_trip_time_seconds",
			Help:      "Histogram of echo round trip times in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		PollMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_misses_total",
			Help:      "Total poll intervals that ended without a datagram",
		}),
		HeartbeatsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_sent_total",
			Help:      "Total heartbeat bytes sent, by signal",
		}, []string{"signal"}),
		HeartbeatsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_received_total",
			Help:      "Total heartbeat bytes received, by signal",
		}, []string{"signal"}),
		WatchdogTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_ticks_total",
			Help:      "Total watchdog liveness evaluations",
		}),
		WatchdogIdleTicks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchdog_idle_ticks",
			Help:      "Consecutive ticks without a byte from the prober",
		}),
		WatchdogResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_resets_total",
			Help:      "Total times the idle counter was reset by the prober",
		}),
	}
}

// RecordProbeSent records one echo request on the wire
func (m *Metrics) RecordProbeSent() {
	m.ProbesSent.Inc()
}

// RecordReply records a matched reply and its round trip time
func (m *Metrics) RecordReply(rtt time.Duration) {
	m.RepliesReceived.Inc()
	m.RoundTripTime.Observe(rtt.Seconds())
}

// RecordDiscard records a datagram dropped for reason
func (m *Metrics) RecordDiscard(reason string) {
	if reason == ReasonMalformed {
		m.MalformedPackets.Inc()
	}
	m.RepliesDiscarded.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordPollMiss() {
	m.PollMisses.Inc()
}

// RecordHeartbeatSent records one heartbeat byte sent; signal is its String form
func (m *Metrics) RecordHeartbeatSent(signal string) {
	m.HeartbeatsSent.WithLabelValues(signal).Inc()
}

func (m *Metrics) RecordHeartbeatReceived(signal string) {
	m.HeartbeatsReceived.WithLabelValues(signal).Inc()
}

// RecordWatchdogTick records one evaluation and the idle counter after it
func (m *Metrics) RecordWatchdogTick(idleTicks int, reset bool) {
	m.WatchdogTicks.Inc()
	m.WatchdogIdleTicks.Set(float64(idleTicks))
	if reset {
		m.WatchdogResets.Inc()
	}
}
