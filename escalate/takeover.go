package escalate

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/telemetry"
)

// RequestStatus is the lifecycle state of a takeover request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusResolved RequestStatus = "resolved"
)

// TakeoverRequest asks a human operator to handle one message.
type TakeoverRequest struct {
	ID         string        `json:"id"`
	Reason     Reason        `json:"reason"`
	Urgency    Priority      `json:"urgency"`
	Message    chat.Message  `json:"message"`
	Confidence float64       `json:"confidence"`
	CreatedAt  time.Time     `json:"created_at"`
	Status     RequestStatus `json:"status"`
	Resolution string        `json:"resolution,omitempty"`
	ResolvedAt time.Time     `json:"resolved_at"`
}

// DefaultTakeoverCapacity bounds the request ring.
const DefaultTakeoverCapacity = 100

// ErrRequestNotFound is returned when resolving an id that is not in the ring
// (never raised, already evicted, or mistyped).
var ErrRequestNotFound = fmt.Errorf("takeover request not found")

// TakeoverQueue is a bounded ring of takeover requests. When full, the oldest
// request is evicted regardless of status, so an unstaffed operator desk
// degrades by forgetting stale requests rather than growing without bound.
type TakeoverQueue struct {
	mu       sync.Mutex
	capacity int
	requests []*TakeoverRequest
	seq      uint64

	raised   int
	resolved int
	byReason map[Reason]int
}

// NewTakeoverQueue builds a ring with the given capacity; capacity <= 0
// selects DefaultTakeoverCapacity.
func NewTakeoverQueue(capacity int) *TakeoverQueue {
	if capacity <= 0 {
		capacity = DefaultTakeoverCapacity
	}
	return &TakeoverQueue{
		capacity: capacity,
		byReason: make(map[Reason]int),
	}
}

// Raise stores a pending request built from the firing decision and returns
// a snapshot of it.
func (q *TakeoverQueue) Raise(msg chat.Message, d Decision, confidence float64) TakeoverRequest {
	q.mu.Lock()
	q.seq++
	req := &TakeoverRequest{
		ID:         fmt.Sprintf("TK%d-%03d", time.Now().UnixMilli(), q.seq%1000),
		Reason:     d.Reason,
		Urgency:    d.Urgency,
		Message:    msg,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
		Status:     StatusPending,
	}
	q.requests = append(q.requests, req)
	if len(q.requests) > q.capacity {
		q.requests = q.requests[len(q.requests)-q.capacity:]
	}
	q.raised++
	q.byReason[d.Reason]++
	snapshot := *req
	q.mu.Unlock()

	telemetry.IncTakeover(string(d.Reason))
	logFn := slog.Warn
	if d.Urgency == PriorityHigh {
		logFn = slog.Error
	}
	logFn("human takeover requested",
		slog.String("id", snapshot.ID),
		slog.String("reason", string(d.Reason)),
		slog.String("urgency", d.Urgency.String()),
		slog.String("sender", msg.SenderID),
		slog.Float64("confidence", confidence))
	return snapshot
}

// Pending returns snapshots of unresolved requests, optionally filtered by
// urgency name ("high"/"medium"/"low"); an empty filter returns all.
func (q *TakeoverQueue) Pending(urgency string) []TakeoverRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]TakeoverRequest, 0, len(q.requests))
	for _, req := range q.requests {
		if req.Status != StatusPending {
			continue
		}
		if urgency != "" && req.Urgency.String() != urgency {
			continue
		}
		out = append(out, *req)
	}
	return out
}

// Resolve marks a pending request handled. Resolving an already resolved
// request is a no-op returning its current snapshot.
func (q *TakeoverQueue) Resolve(id, resolution string) (TakeoverRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, req := range q.requests {
		if req.ID != id {
			continue
		}
		if req.Status == StatusPending {
			req.Status = StatusResolved
			req.Resolution = resolution
			req.ResolvedAt = time.Now().UTC()
			q.resolved++
		}
		return *req, nil
	}
	return TakeoverRequest{}, ErrRequestNotFound
}

// TakeoverStats is the operator-facing statistics snapshot.
type TakeoverStats struct {
	TotalTakeovers    int            `json:"total_takeovers"`
	ResolvedTakeovers int            `json:"resolved_takeovers"`
	PendingTakeovers  int            `json:"pending_takeovers"`
	ResolutionRate    float64        `json:"resolution_rate"`
	ByReason          map[string]int `json:"by_reason"`
}

// Stats summarizes raised and resolved counts with a resolution rate.
func (q *TakeoverQueue) Stats() TakeoverStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := 0
	for _, req := range q.requests {
		if req.Status == StatusPending {
			pending++
		}
	}
	byReason := make(map[string]int, len(q.byReason))
	for reason, n := range q.byReason {
		byReason[string(reason)] = n
	}
	rate := 0.0
	if q.raised > 0 {
		rate = float64(q.resolved) / float64(q.raised)
	}
	return TakeoverStats{
		TotalTakeovers:    q.raised,
		ResolvedTakeovers: q.resolved,
		PendingTakeovers:  pending,
		ResolutionRate:    rate,
		ByReason:          byReason,
	}
}
