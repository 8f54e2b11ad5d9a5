package store

import (
	"testing"
	"time"
)

func TestDeduperSuppressesDuplicates(t *testing.T) {
	d := NewDeduper(time.Minute)
	if d.Seen("wamid.1") {
		t.Error("first sighting should not be seen")
	}
	if !d.Seen("wamid.1") {
		t.Error("second sighting should be seen")
	}
	if d.Seen("wamid.2") {
		t.Error("distinct id should not be seen")
	}
}

func TestDeduperEmptyIDNeverSeen(t *testing.T) {
	d := NewDeduper(time.Minute)
	if d.Seen("") || d.Seen("") {
		t.Error("empty id must never count as seen")
	}
	if d.Len() != 0 {
		t.Errorf("empty id must not be recorded, len=%d", d.Len())
	}
}

func TestDeduperTTLExpiry(t *testing.T) {
	now := time.Now()
	d := NewDeduper(time.Minute)
	d.now = func() time.Time { return now }

	if d.Seen("wamid.1") {
		t.Fatal("first sighting should not be seen")
	}

	now = now.Add(30 * time.Second)
	if !d.Seen("wamid.1") {
		t.Error("within TTL the id should still be seen")
	}

	now = now.Add(2 * time.Minute)
	if d.Seen("wamid.1") {
		t.Error("after TTL the id should be forgotten")
	}
}

func TestDeduperPrunesExpiredEntries(t *testing.T) {
	now := time.Now()
	d := NewDeduper(time.Minute)
	d.now = func() time.Time { return now }

	d.Seen("wamid.1")
	d.Seen("wamid.2")
	now = now.Add(2 * time.Minute)
	d.Seen("wamid.3")

	if got := d.Len(); got != 1 {
		t.Errorf("expected expired entries pruned, len=%d", got)
	}
}

func TestDeduperZeroTTLDefaults(t *testing.T) {
	d := NewDeduper(0)
	if d.ttl != DefaultDedupTTL {
		t.Errorf("expected default TTL, got %v", d.ttl)
	}
}
