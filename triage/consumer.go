package triage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/chat-triage/audit"
	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/faults"
	"github.com/onnwee/chat-triage/responder"
	"github.com/onnwee/chat-triage/telemetry"
)

// Defaults applied by NewConsumer when the corresponding config field is
// zero.
const (
	DefaultReplyCooldown = 3 * time.Second
	DefaultContextDepth  = 10
)

// Responder produces a drafted reply for one message given recent room
// context. *responder.Client satisfies it.
type Responder interface {
	Classify(ctx context.Context, msg chat.Message, recent []string) (responder.Result, error)
}

// ContextCache stores recent room chatter so the responder sees a
// conversation, not one line in isolation. *cache.Cache satisfies it; nil
// disables context.
type ContextCache interface {
	Append(ctx context.Context, roomID, line string) error
	Recent(ctx context.Context, roomID string, limit int) ([]string, error)
}

// ConsumerConfig carries the collaborators of a Consumer. Queue and
// Classifier are required; the rest may be nil to disable that stage.
type ConsumerConfig struct {
	Queue      *Queue
	Classifier *escalate.Classifier
	Takeovers  *escalate.TakeoverQueue
	Audits     *audit.Ledger
	Faults     *faults.Handler
	Responder  Responder
	Cache      ContextCache

	// Cooldown is the minimum gap between outbound replies. Zero selects
	// DefaultReplyCooldown; negative disables the gate.
	Cooldown time.Duration

	// ContextDepth is how many recent room lines ride along to the
	// responder. Zero selects DefaultContextDepth.
	ContextDepth int
}

// Consumer drains the queue and runs the reply half of triage. It is the
// single drain loop the queue is designed around.
type Consumer struct {
	queue      *Queue
	classifier *escalate.Classifier
	takeovers  *escalate.TakeoverQueue
	audits     *audit.Ledger
	faults     *faults.Handler
	responder  Responder
	cache      ContextCache

	cooldown     time.Duration
	contextDepth int

	mu        sync.Mutex
	lastReply time.Time
}

// NewConsumer builds a consumer over cfg, filling zero fields with defaults.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.Classifier == nil {
		cfg.Classifier = escalate.NewClassifier(escalate.DefaultRules())
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultReplyCooldown
	}
	if cfg.ContextDepth <= 0 {
		cfg.ContextDepth = DefaultContextDepth
	}
	return &Consumer{
		queue:        cfg.Queue,
		classifier:   cfg.Classifier,
		takeovers:    cfg.Takeovers,
		audits:       cfg.Audits,
		faults:       cfg.Faults,
		responder:    cfg.Responder,
		cache:        cfg.Cache,
		cooldown:     cfg.Cooldown,
		contextDepth: cfg.ContextDepth,
	}
}

// Run drains the queue until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	slog.Info("triage consumer starting", slog.Duration("cooldown", c.cooldown))
	for {
		item, err := c.queue.Dequeue(ctx)
		if err != nil {
			slog.Info("triage consumer stopped")
			return
		}
		c.processOne(ctx, item)
	}
}

func (c *Consumer) processOne(ctx context.Context, item Item) {
	telemetry.ConsumeCycles.Inc()
	msg := item.Message
	logger := telemetry.LoggerWithCorr(ctx).With(
		slog.String("sender", msg.SenderID),
		slog.String("room", msg.RoomID),
		slog.String("component", "triage_consume"))

	recent := c.roomContext(ctx, msg)

	// Escalated items already have an operator on the hook from intake; they
	// feed room context but get no automated reply.
	if item.Escalated {
		logger.Debug("escalated item, reply left to operator",
			slog.String("category", item.Category))
		return
	}
	if c.responder == nil || !c.classifier.ShouldReply(msg.Content) {
		return
	}

	spanCtx, span := telemetry.StartSpan(ctx, "triage", "responder.classify")
	start := time.Now()
	res, err := c.responder.Classify(spanCtx, msg, recent)
	telemetry.ResponderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.RecordError(span, err)
		span.End()
		c.fault(ctx, err, "responder classify", msg)
		return
	}
	telemetry.SetSpanSuccess(span)
	span.End()

	dec := c.classifier.Evaluate(escalate.Input{
		Content:    msg.Content,
		Reply:      res.Reply,
		Confidence: res.Confidence,
		RiskLevel:  res.RiskLevel,
	})
	if dec.Takeover {
		if c.takeovers != nil {
			c.takeovers.Raise(msg, dec, res.Confidence)
		}
		logger.Info("reply withheld for takeover",
			slog.String("reason", string(dec.Reason)),
			slog.Float64("confidence", res.Confidence))
		return
	}
	if dec.Audit {
		if c.audits != nil && res.Reply != "" {
			held := c.audits.Submit(msg, res.Reply, res.Confidence, res.RiskLevel)
			logger.Info("reply held for audit",
				slog.String("audit_id", held.ID),
				slog.String("risk_level", res.RiskLevel),
				slog.Float64("confidence", res.Confidence))
		}
		return
	}
	if res.Reply == "" || item.ReplyTo == nil {
		return
	}
	if !c.takeCooldown() {
		logger.Debug("reply suppressed by cooldown")
		return
	}
	if err := item.ReplyTo.Send(res.Reply); err != nil {
		c.fault(ctx, err, "send reply", msg)
		return
	}
	telemetry.RepliesSent.Inc()
	logger.Info("reply sent",
		slog.String("intent", res.Intent),
		slog.Float64("confidence", res.Confidence),
		slog.Duration("responder_duration", time.Since(start)))
}

// roomContext returns prior room chatter and records the current message for
// whoever asks next. Recent is fetched before the append so the current
// message is not part of its own context.
func (c *Consumer) roomContext(ctx context.Context, msg chat.Message) []string {
	if c.cache == nil {
		return nil
	}
	recent, err := c.cache.Recent(ctx, msg.RoomID, c.contextDepth)
	if err != nil {
		c.fault(ctx, err, "context recent", msg)
		recent = nil
	}
	if err := c.cache.Append(ctx, msg.RoomID, msg.DisplayName+": "+msg.Content); err != nil {
		c.fault(ctx, err, "context append", msg)
	}
	return recent
}

// takeCooldown consumes the reply slot when the cooldown has elapsed.
func (c *Consumer) takeCooldown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.lastReply) < c.cooldown {
		return false
	}
	c.lastReply = now
	return true
}

func (c *Consumer) fault(ctx context.Context, err error, op string, msg chat.Message) {
	if c.faults == nil {
		slog.Warn(op, slog.Any("err", err), slog.String("sender", msg.SenderID))
		return
	}
	c.faults.Handle(ctx, err, op, map[string]any{"sender": msg.SenderID, "room": msg.RoomID})
}
