package triage

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/telemetry"
)

func newTestPipeline(dedup *Deduplicator) (*Pipeline, *escalate.TakeoverQueue, *Queue) {
	telemetry.Init()
	classifier := escalate.NewClassifier(escalate.DefaultRules())
	takeovers := escalate.NewTakeoverQueue(10)
	queue := NewQueue(10)
	return NewPipeline(dedup, classifier, takeovers, queue), takeovers, queue
}

func TestIngestClassifiesAndQueues(t *testing.T) {
	p, takeovers, queue := newTestPipeline(nil)

	dec, ok := p.Ingest(chat.Message{SenderID: "u1", Content: "这个多少钱？", RoomID: "r1"}, nil)
	if !ok {
		t.Fatal("message not admitted")
	}
	if dec.Takeover {
		t.Error("price question raised a takeover")
	}
	if dec.Category != "price_inquiry" {
		t.Errorf("Category = %q, want price_inquiry", dec.Category)
	}
	if got := queue.Stats().MediumSize; got != 1 {
		t.Errorf("MediumSize = %d, want 1", got)
	}
	if got := len(takeovers.Pending("")); got != 0 {
		t.Errorf("pending takeovers = %d, want 0", got)
	}
}

func TestIngestRaisesTakeoverAtIntake(t *testing.T) {
	p, takeovers, queue := newTestPipeline(nil)

	dec, ok := p.Ingest(chat.Message{SenderID: "u2", Content: "我要投诉你们"}, nil)
	if !ok || !dec.Takeover {
		t.Fatalf("admitted = %v, Takeover = %v, want both true", ok, dec.Takeover)
	}
	if dec.Reason != escalate.ReasonSevereComplaint {
		t.Errorf("Reason = %q, want %q", dec.Reason, escalate.ReasonSevereComplaint)
	}
	if got := len(takeovers.Pending("high")); got != 1 {
		t.Fatalf("pending high takeovers = %d, want 1", got)
	}

	item, err := queue.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !item.Escalated {
		t.Error("queued item not marked escalated")
	}
	if item.Priority != escalate.PriorityHigh {
		t.Errorf("Priority = %v, want %v", item.Priority, escalate.PriorityHigh)
	}
}

func TestIngestSuppressesDuplicates(t *testing.T) {
	p, _, queue := newTestPipeline(NewDeduplicator(time.Minute, 5))
	msg := chat.Message{SenderID: "u1", Content: "在吗"}

	if _, ok := p.Ingest(msg, nil); !ok {
		t.Fatal("first ingest not admitted")
	}
	if _, ok := p.Ingest(msg, nil); ok {
		t.Error("duplicate admitted")
	}
	if got := queue.Len(); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}
}
