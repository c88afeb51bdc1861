// Package audit tracks drafted replies flagged for human review.
//
// Flagged replies enter a bounded pending ledger and stay there until a
// reviewer approves, rejects or modifies them; those states are terminal.
// The ledger is in-memory and best-effort: entries evicted by capacity are
// simply gone, matching the process-local scope of the rest of the pipeline.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/telemetry"
)

// Status is the review state of an audit item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusModified Status = "modified"
)

// Item is one drafted reply awaiting or past review.
type Item struct {
	ID            string       `json:"id"`
	Message       chat.Message `json:"message"`
	DraftedReply  string       `json:"drafted_reply"`
	Confidence    float64      `json:"confidence"`
	RiskLevel     string       `json:"risk_level"`
	Status        Status       `json:"status"`
	Reviewer      string       `json:"reviewer,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	ModifiedReply string       `json:"modified_reply,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	ReviewedAt    time.Time    `json:"reviewed_at"`
}

// DefaultCapacity bounds the ledger ring.
const DefaultCapacity = 100

// ErrItemNotFound is returned for review calls against an unknown or evicted id.
var ErrItemNotFound = fmt.Errorf("audit item not found")

// ErrAlreadyReviewed is returned when reviewing an item in a terminal state.
var ErrAlreadyReviewed = fmt.Errorf("audit item already reviewed")

// Ledger is the bounded in-memory review queue.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	items    []*Item
	seq      uint64

	submitted int
	approved  int
	rejected  int
	modified  int
}

// NewLedger builds a ledger; capacity <= 0 selects DefaultCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity}
}

// Submit stores a flagged drafted reply as pending and returns its snapshot.
// When the ledger is full, the oldest item is evicted regardless of status.
func (l *Ledger) Submit(msg chat.Message, draftedReply string, confidence float64, riskLevel string) Item {
	l.mu.Lock()
	l.seq++
	item := &Item{
		ID:           fmt.Sprintf("AU%d-%03d", time.Now().UnixMilli(), l.seq%1000),
		Message:      msg,
		DraftedReply: draftedReply,
		Confidence:   confidence,
		RiskLevel:    riskLevel,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	l.items = append(l.items, item)
	if len(l.items) > l.capacity {
		l.items = l.items[len(l.items)-l.capacity:]
	}
	l.submitted++
	snapshot := *item
	l.mu.Unlock()

	telemetry.IncAuditSubmitted()
	return snapshot
}

// Pending returns snapshots of unreviewed items, optionally filtered by risk
// level; an empty filter returns all.
func (l *Ledger) Pending(riskLevel string) []Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Item, 0, len(l.items))
	for _, item := range l.items {
		if item.Status != StatusPending {
			continue
		}
		if riskLevel != "" && item.RiskLevel != riskLevel {
			continue
		}
		out = append(out, *item)
	}
	return out
}

// Approve marks a pending item approved for sending.
func (l *Ledger) Approve(id, reviewer string) (Item, error) {
	return l.review(id, reviewer, StatusApproved, "", "")
}

// Reject marks a pending item rejected; notes explain why.
func (l *Ledger) Reject(id, reviewer, notes string) (Item, error) {
	return l.review(id, reviewer, StatusRejected, notes, "")
}

// Modify replaces the drafted reply and marks the item modified.
func (l *Ledger) Modify(id, reviewer, modifiedReply string) (Item, error) {
	return l.review(id, reviewer, StatusModified, "", modifiedReply)
}

func (l *Ledger) review(id, reviewer string, status Status, notes, modifiedReply string) (Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, item := range l.items {
		if item.ID != id {
			continue
		}
		if item.Status != StatusPending {
			return *item, ErrAlreadyReviewed
		}
		item.Status = status
		item.Reviewer = reviewer
		item.Notes = notes
		item.ModifiedReply = modifiedReply
		item.ReviewedAt = time.Now().UTC()
		switch status {
		case StatusApproved:
			l.approved++
		case StatusRejected:
			l.rejected++
		case StatusModified:
			l.modified++
		}
		return *item, nil
	}
	return Item{}, ErrItemNotFound
}

// Stats is the reviewer-facing statistics snapshot.
type Stats struct {
	TotalSubmitted int     `json:"total_submitted"`
	TotalApproved  int     `json:"total_approved"`
	TotalRejected  int     `json:"total_rejected"`
	TotalModified  int     `json:"total_modified"`
	PendingItems   int     `json:"pending_items"`
	ApprovalRate   float64 `json:"approval_rate"`
}

// Stats summarizes submissions and review outcomes. The approval rate is
// approved over submitted, so unreviewed items count against it.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := 0
	for _, item := range l.items {
		if item.Status == StatusPending {
			pending++
		}
	}
	rate := 0.0
	if l.submitted > 0 {
		rate = float64(l.approved) / float64(l.submitted)
	}
	return Stats{
		TotalSubmitted: l.submitted,
		TotalApproved:  l.approved,
		TotalRejected:  l.rejected,
		TotalModified:  l.modified,
		PendingItems:   pending,
		ApprovalRate:   rate,
	}
}
