// Package store provides inbound message deduplication.
//
// Webhook events are delivered at least once; the provider retries whole
// events on non-200 responses and sometimes redelivers regardless. The
// seen-set below suppresses reprocessing within a short window. It is
// ephemeral per process and best-effort only: operations downstream are
// written to be idempotent where it matters (rating submission checks the
// stored value before writing).
package store

import (
	"sync"
	"time"
)

// DefaultDedupTTL is how long a message id stays in the seen-set.
const DefaultDedupTTL = 60 * time.Second

// Deduper is a short-TTL seen-set keyed by provider message id.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// NewDeduper creates a Deduper with the given TTL; zero means DefaultDedupTTL.
func NewDeduper(ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduper{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen records the message id and reports whether it was already present
// within the TTL window. Expired entries are pruned opportunistically.
func (d *Deduper) Seen(messageID string) bool {
	if messageID == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cutoff := now.Add(-d.ttl)
	for id, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, id)
		}
	}

	if at, ok := d.seen[messageID]; ok && !at.Before(cutoff) {
		return true
	}
	d.seen[messageID] = now
	return false
}

// Len returns the number of unexpired entries (for tests).
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
