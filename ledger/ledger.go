// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package ledger remembers the echo requests of a session that are still
// unanswered, so a reply that shows up after its cycle moved on can be told
// apart from a stray packet.
package ledger

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long an unanswered request is remembered
const DefaultTTL = 30 * time.Second

// Ledger maps wire sequence numbers to send times. It is not safe for
// concurrent use beyond what go-cache itself guarantees.
type Ledger struct {
	items *cache.Cache
}

// New returns an empty ledger. Entries expire after ttl; expired entries
// are dropped by Prune rather than by a background janitor.
func New(ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{items: cache.New(ttl, 0)}
}

func key(seq uint16) string {
	return strconv.FormatUint(uint64(seq), 10)
}

// Record notes that the request with seq was sent at sent
func (l *Ledger) Record(seq uint16, sent time.Time) {
	l.items.Set(key(seq), sent, cache.DefaultExpiration)
}

// Lookup returns when seq was sent, if it is still outstanding
func (l *Ledger) Lookup(seq uint16) (time.Time, bool) {
	x, found := l.items.Get(key(seq))
	if !found {
		return time.Time{}, false
	}
	return x.(time.Time), true
}

// Resolve forgets seq and reports whether it was outstanding
func (l *Ledger) Resolve(seq uint16) (time.Time, bool) {
	sent, found := l.Lookup(seq)
	if found {
		l.items.Delete(key(seq))
	}
	return sent, found
}

// Prune drops expired entries
func (l *Ledger) Prune() {
	l.items.DeleteExpired()
}

// Len is the number of entries, expired ones included until Prune runs
func (l *Ledger) Len() int {
	return l.items.ItemCount()
}
