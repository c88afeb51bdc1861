package triage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/telemetry"
)

// DefaultMaxQueueSize bounds each priority level of the queue.
const DefaultMaxQueueSize = 100

// ReplySender pushes a payload back over the connection a message arrived
// on. *conn.Supervisor satisfies it.
type ReplySender interface {
	Send(v any) error
}

// Item is one triaged message waiting for the consumer.
type Item struct {
	Message    chat.Message
	Priority   escalate.Priority
	Category   string
	EnqueuedAt time.Time

	// Escalated marks items whose intake classification already raised a
	// takeover; the consumer processes them for context only.
	Escalated bool

	// ReplyTo carries the originating connection so the consumer can answer
	// on the same socket. Nil when replies are impossible, e.g. replayed
	// traffic.
	ReplyTo ReplySender
}

// Queue is a bounded three-level priority queue. Each level is a FIFO with
// its own capacity; when a level is full the incoming item is dropped, never
// queued work. Dequeue always drains the most urgent non-empty level first.
type Queue struct {
	mu     sync.Mutex
	levels [3][]Item
	max    int
	notify chan struct{}

	enqueued int
	dropped  [3]int
}

// NewQueue builds a queue holding up to maxPerLevel items per priority
// level; maxPerLevel <= 0 selects DefaultMaxQueueSize.
func NewQueue(maxPerLevel int) *Queue {
	if maxPerLevel <= 0 {
		maxPerLevel = DefaultMaxQueueSize
	}
	return &Queue{max: maxPerLevel, notify: make(chan struct{}, 1)}
}

// Enqueue files the item under its priority and reports whether it was
// admitted. Unknown priorities file as medium.
func (q *Queue) Enqueue(item Item) bool {
	lvl := int(item.Priority)
	if lvl < 0 || lvl >= len(q.levels) {
		lvl = int(escalate.PriorityMedium)
	}

	q.mu.Lock()
	if len(q.levels[lvl]) >= q.max {
		q.dropped[lvl]++
		q.mu.Unlock()
		telemetry.IncQueueDropped(escalate.Priority(lvl).String())
		slog.Warn("queue level full, message dropped",
			slog.String("priority", escalate.Priority(lvl).String()),
			slog.String("sender", item.Message.SenderID))
		return false
	}
	q.levels[lvl] = append(q.levels[lvl], item)
	q.enqueued++
	depth := len(q.levels[lvl])
	q.mu.Unlock()

	telemetry.SetQueueDepth(escalate.Priority(lvl).String(), depth)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Dequeue pops the oldest item from the most urgent non-empty level,
// blocking until one arrives or ctx ends. The queue is built around a single
// drain loop; concurrent callers may miss wakeups.
func (q *Queue) Dequeue(ctx context.Context) (Item, error) {
	for {
		q.mu.Lock()
		for lvl := range q.levels {
			if len(q.levels[lvl]) == 0 {
				continue
			}
			item := q.levels[lvl][0]
			q.levels[lvl] = q.levels[lvl][1:]
			depth := len(q.levels[lvl])
			q.mu.Unlock()
			telemetry.SetQueueDepth(escalate.Priority(lvl).String(), depth)
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Cap returns the per-level capacity.
func (q *Queue) Cap() int { return q.max }

// Len returns the total number of queued items across all levels.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.levels[0]) + len(q.levels[1]) + len(q.levels[2])
}

// QueueStats is the queue depth and drop counters snapshot.
type QueueStats struct {
	HighSize       int            `json:"high_priority_size"`
	MediumSize     int            `json:"medium_priority_size"`
	LowSize        int            `json:"low_priority_size"`
	TotalInQueue   int            `json:"total_in_queue"`
	TotalEnqueued  int            `json:"total_enqueued"`
	TotalDropped   int            `json:"total_dropped"`
	DroppedByLevel map[string]int `json:"dropped_by_level"`
}

// Stats reports per-level depths plus lifetime enqueue and drop counts.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := make(map[string]int, len(q.dropped))
	total := 0
	for lvl, n := range q.dropped {
		dropped[escalate.Priority(lvl).String()] = n
		total += n
	}
	return QueueStats{
		HighSize:       len(q.levels[escalate.PriorityHigh]),
		MediumSize:     len(q.levels[escalate.PriorityMedium]),
		LowSize:        len(q.levels[escalate.PriorityLow]),
		TotalInQueue:   len(q.levels[0]) + len(q.levels[1]) + len(q.levels[2]),
		TotalEnqueued:  q.enqueued,
		TotalDropped:   total,
		DroppedByLevel: dropped,
	}
}
