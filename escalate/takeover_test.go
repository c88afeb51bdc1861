package escalate

import (
	"errors"
	"testing"

	"github.com/onnwee/chat-triage/chat"
)

func raiseN(q *TakeoverQueue, n int, reason Reason, urgency Priority) []TakeoverRequest {
	out := make([]TakeoverRequest, 0, n)
	for i := 0; i < n; i++ {
		req := q.Raise(
			chat.Message{SenderID: "u1", Content: "转人工"},
			Decision{Takeover: true, Reason: reason, Urgency: urgency},
			0.9,
		)
		out = append(out, req)
	}
	return out
}

func TestRaiseAssignsUniqueIDs(t *testing.T) {
	q := NewTakeoverQueue(10)
	reqs := raiseN(q, 5, ReasonEscalationRequest, PriorityMedium)

	seen := make(map[string]bool)
	for _, req := range reqs {
		if req.ID == "" || req.ID[:2] != "TK" {
			t.Errorf("ID = %q, want TK prefix", req.ID)
		}
		if seen[req.ID] {
			t.Errorf("duplicate ID %q", req.ID)
		}
		seen[req.ID] = true
		if req.Status != StatusPending {
			t.Errorf("Status = %q, want %q", req.Status, StatusPending)
		}
	}
}

func TestPendingFiltersByUrgency(t *testing.T) {
	q := NewTakeoverQueue(10)
	raiseN(q, 2, ReasonSevereComplaint, PriorityHigh)
	raiseN(q, 3, ReasonEscalationRequest, PriorityMedium)

	if got := len(q.Pending("")); got != 5 {
		t.Errorf("Pending(all) = %d, want 5", got)
	}
	if got := len(q.Pending("high")); got != 2 {
		t.Errorf("Pending(high) = %d, want 2", got)
	}
	if got := len(q.Pending("medium")); got != 3 {
		t.Errorf("Pending(medium) = %d, want 3", got)
	}
	if got := len(q.Pending("low")); got != 0 {
		t.Errorf("Pending(low) = %d, want 0", got)
	}
}

func TestResolveTransitionsOnce(t *testing.T) {
	q := NewTakeoverQueue(10)
	req := raiseN(q, 1, ReasonSevereComplaint, PriorityHigh)[0]

	resolved, err := q.Resolve(req.ID, "handled by operator")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Status != StatusResolved || resolved.Resolution != "handled by operator" {
		t.Errorf("resolved = %+v, want resolved with resolution", resolved)
	}
	if resolved.ResolvedAt.IsZero() {
		t.Error("ResolvedAt not set")
	}

	// Second resolve is a no-op, not an error.
	again, err := q.Resolve(req.ID, "different note")
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if again.Resolution != "handled by operator" {
		t.Errorf("Resolution = %q, want original kept", again.Resolution)
	}

	if _, err := q.Resolve("TK0-000", "x"); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("Resolve(unknown) error = %v, want ErrRequestNotFound", err)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	q := NewTakeoverQueue(3)
	reqs := raiseN(q, 5, ReasonEscalationRequest, PriorityMedium)

	pending := q.Pending("")
	if len(pending) != 3 {
		t.Fatalf("Pending = %d, want capacity 3", len(pending))
	}
	// The two oldest were evicted.
	for _, evicted := range reqs[:2] {
		if _, err := q.Resolve(evicted.ID, "x"); !errors.Is(err, ErrRequestNotFound) {
			t.Errorf("evicted request %s still resolvable, err = %v", evicted.ID, err)
		}
	}

	stats := q.Stats()
	if stats.TotalTakeovers != 5 {
		t.Errorf("TotalTakeovers = %d, want 5 (eviction does not rewrite history)", stats.TotalTakeovers)
	}
}

func TestTakeoverStats(t *testing.T) {
	q := NewTakeoverQueue(10)
	reqs := raiseN(q, 4, ReasonSevereComplaint, PriorityHigh)
	raiseN(q, 1, ReasonBrandRisk, PriorityHigh)

	for _, req := range reqs[:2] {
		if _, err := q.Resolve(req.ID, "done"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}

	stats := q.Stats()
	if stats.TotalTakeovers != 5 {
		t.Errorf("TotalTakeovers = %d, want 5", stats.TotalTakeovers)
	}
	if stats.ResolvedTakeovers != 2 {
		t.Errorf("ResolvedTakeovers = %d, want 2", stats.ResolvedTakeovers)
	}
	if stats.PendingTakeovers != 3 {
		t.Errorf("PendingTakeovers = %d, want 3", stats.PendingTakeovers)
	}
	if want := 2.0 / 5.0; stats.ResolutionRate != want {
		t.Errorf("ResolutionRate = %v, want %v", stats.ResolutionRate, want)
	}
	if stats.ByReason["severe_complaint"] != 4 || stats.ByReason["brand_risk"] != 1 {
		t.Errorf("ByReason = %v, want severe_complaint:4 brand_risk:1", stats.ByReason)
	}
}
