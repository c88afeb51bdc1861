package triage

import (
	"testing"
	"time"
)

func TestDeduplicatorSlidingWindow(t *testing.T) {
	d := NewDeduplicator(50*time.Millisecond, 5)

	if d.IsDuplicate("u1", "在吗") {
		t.Fatal("first sighting flagged as duplicate")
	}
	if !d.IsDuplicate("u1", "在吗") {
		t.Error("repeat inside window not suppressed")
	}
	if !d.IsDuplicate("u1", "在吗") {
		t.Error("third repeat inside window not suppressed")
	}

	time.Sleep(60 * time.Millisecond)
	if d.IsDuplicate("u1", "在吗") {
		t.Error("repeat after window expiry still suppressed")
	}
}

func TestDeduplicatorScopedPerSender(t *testing.T) {
	d := NewDeduplicator(time.Minute, 5)
	d.IsDuplicate("u1", "hello")
	if d.IsDuplicate("u2", "hello") {
		t.Error("suppression leaked across senders")
	}
}

func TestDeduplicatorBoundedHistory(t *testing.T) {
	d := NewDeduplicator(time.Minute, 2)
	d.IsDuplicate("u1", "a")
	d.IsDuplicate("u1", "b")
	// "c" evicts "a" from the two-entry history.
	d.IsDuplicate("u1", "c")

	if d.IsDuplicate("u1", "a") {
		t.Error("evicted content still suppressing")
	}
	if !d.IsDuplicate("u1", "c") {
		t.Error("retained content not suppressing")
	}
}

func TestDeduplicatorStats(t *testing.T) {
	d := NewDeduplicator(time.Minute, 5)
	d.IsDuplicate("u1", "在吗")
	d.IsDuplicate("u1", "在吗")
	d.IsDuplicate("u2", "买了")

	got := d.Stats()
	if got.TrackedSenders != 2 {
		t.Errorf("TrackedSenders = %d, want 2", got.TrackedSenders)
	}
	if got.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", got.Suppressed)
	}
}
