package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/escalate"
)

func queueItem(content string, p escalate.Priority) Item {
	return Item{
		Message:  chat.Message{SenderID: "u1", Content: content},
		Priority: p,
	}
}

func TestQueueStrictPriorityOrder(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue(queueItem("low-1", escalate.PriorityLow))
	q.Enqueue(queueItem("high-1", escalate.PriorityHigh))
	q.Enqueue(queueItem("medium-1", escalate.PriorityMedium))
	q.Enqueue(queueItem("high-2", escalate.PriorityHigh))

	want := []string{"high-1", "high-2", "medium-1", "low-1"}
	for i, content := range want {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if item.Message.Content != content {
			t.Errorf("dequeue %d = %q, want %q", i, item.Message.Content, content)
		}
	}
}

func TestQueueDropsNewestWhenFull(t *testing.T) {
	q := NewQueue(2)
	if !q.Enqueue(queueItem("first", escalate.PriorityHigh)) {
		t.Fatal("first enqueue rejected")
	}
	if !q.Enqueue(queueItem("second", escalate.PriorityHigh)) {
		t.Fatal("second enqueue rejected")
	}
	if q.Enqueue(queueItem("third", escalate.PriorityHigh)) {
		t.Fatal("enqueue into a full level accepted")
	}

	stats := q.Stats()
	if stats.HighSize != 2 {
		t.Errorf("HighSize = %d, want 2", stats.HighSize)
	}
	if stats.TotalDropped != 1 {
		t.Errorf("TotalDropped = %d, want 1", stats.TotalDropped)
	}
	if stats.DroppedByLevel["high"] != 1 {
		t.Errorf("DroppedByLevel[high] = %d, want 1", stats.DroppedByLevel["high"])
	}

	// Queued work survives; only the newcomer was sacrificed.
	item, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if item.Message.Content != "first" {
		t.Errorf("head = %q, want %q", item.Message.Content, "first")
	}
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue(10)
	got := make(chan Item, 1)
	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			t.Errorf("dequeue: %v", err)
		}
		got <- item
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue(queueItem("wake", escalate.PriorityMedium))

	select {
	case item := <-got:
		if item.Message.Content != "wake" {
			t.Errorf("dequeued %q, want %q", item.Message.Content, "wake")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue did not wake after enqueue")
	}
}

func TestQueueDequeueHonorsContext(t *testing.T) {
	q := NewQueue(10)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue did not return after cancel")
	}
}

func TestQueueUnknownPriorityFilesAsMedium(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue(queueItem("odd", escalate.Priority(9)))
	if got := q.Stats().MediumSize; got != 1 {
		t.Errorf("MediumSize = %d, want 1", got)
	}
}

func TestQueueStatsCounts(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue(queueItem("a", escalate.PriorityHigh))
	q.Enqueue(queueItem("b", escalate.PriorityLow))
	if _, err := q.Dequeue(context.Background()); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	stats := q.Stats()
	if stats.TotalEnqueued != 2 {
		t.Errorf("TotalEnqueued = %d, want 2", stats.TotalEnqueued)
	}
	if stats.TotalInQueue != 1 {
		t.Errorf("TotalInQueue = %d, want 1", stats.TotalInQueue)
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
}
