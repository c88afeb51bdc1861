package triage

import (
	"log/slog"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/telemetry"
)

// Pipeline is the intake half of triage: duplicate suppression, first-pass
// classification, takeover raising, and queue admission. One Pipeline serves
// every connection.
type Pipeline struct {
	dedup      *Deduplicator
	classifier *escalate.Classifier
	takeovers  *escalate.TakeoverQueue
	queue      *Queue
}

// NewPipeline wires the intake stages together. dedup may be nil to disable
// duplicate suppression.
func NewPipeline(dedup *Deduplicator, classifier *escalate.Classifier, takeovers *escalate.TakeoverQueue, queue *Queue) *Pipeline {
	return &Pipeline{
		dedup:      dedup,
		classifier: classifier,
		takeovers:  takeovers,
		queue:      queue,
	}
}

// Ingest runs one message through the intake stages and reports the decision
// along with whether the message was admitted; false means it was suppressed
// as a duplicate. Content-rule takeovers are raised here, not in the
// consumer, so an operator hears about a complaint even when the queue is
// deep.
func (p *Pipeline) Ingest(msg chat.Message, replyTo ReplySender) (escalate.Decision, bool) {
	telemetry.MessagesIn.Inc()

	if p.dedup != nil && p.dedup.IsDuplicate(msg.SenderID, msg.Content) {
		telemetry.DedupDropped.Inc()
		slog.Debug("duplicate suppressed",
			slog.String("sender", msg.SenderID),
			slog.String("room", msg.RoomID))
		return escalate.Decision{}, false
	}

	dec := p.classifier.Evaluate(escalate.IngestInput(msg.Content))
	item := Item{
		Message:    msg,
		Priority:   dec.Priority,
		Category:   dec.Category,
		EnqueuedAt: time.Now().UTC(),
		ReplyTo:    replyTo,
	}
	if dec.Takeover {
		if p.takeovers != nil {
			p.takeovers.Raise(msg, dec, 1.0)
		}
		item.Escalated = true
	}
	p.queue.Enqueue(item)
	return dec, true
}
