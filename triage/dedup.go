package triage

import (
	"sync"
	"time"
)

// Defaults applied by NewDeduplicator when an argument is zero.
const (
	DefaultDedupWindow    = 30 * time.Second
	DefaultDedupMaxRecent = 5
)

type dedupEntry struct {
	content string
	seenAt  time.Time
}

// Deduplicator suppresses repeated identical messages from one sender inside
// a sliding time window. Each sender's history keeps at most maxRecent
// entries, so a spammy sender costs a fixed amount of memory.
type Deduplicator struct {
	mu         sync.Mutex
	window     time.Duration
	maxRecent  int
	bySender   map[string][]dedupEntry
	suppressed int
}

// NewDeduplicator builds a deduplicator with the given window and per-sender
// history size; zero values select the defaults.
func NewDeduplicator(window time.Duration, maxRecent int) *Deduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if maxRecent <= 0 {
		maxRecent = DefaultDedupMaxRecent
	}
	return &Deduplicator{
		window:    window,
		maxRecent: maxRecent,
		bySender:  make(map[string][]dedupEntry),
	}
}

// IsDuplicate reports whether the sender already said content inside the
// window. Fresh content is recorded; a duplicate is counted and left
// unrecorded, so the window is measured from the first sighting.
func (d *Deduplicator) IsDuplicate(senderID, content string) bool {
	now := time.Now()
	cutoff := now.Add(-d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.bySender[senderID][:0]
	for _, e := range d.bySender[senderID] {
		if e.seenAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	for _, e := range kept {
		if e.content == content {
			d.bySender[senderID] = kept
			d.suppressed++
			return true
		}
	}
	kept = append(kept, dedupEntry{content: content, seenAt: now})
	if len(kept) > d.maxRecent {
		kept = kept[len(kept)-d.maxRecent:]
	}
	d.bySender[senderID] = kept
	return false
}

// DedupStats is the suppression counters snapshot.
type DedupStats struct {
	TrackedSenders int `json:"tracked_senders"`
	Suppressed     int `json:"suppressed"`
}

// Stats reports how many senders are tracked and how many messages were
// suppressed since startup.
func (d *Deduplicator) Stats() DedupStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DedupStats{TrackedSenders: len(d.bySender), Suppressed: d.suppressed}
}
