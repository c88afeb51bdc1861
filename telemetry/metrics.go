// Package telemetry provides Prometheus metrics, tracing setup and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesIn      prometheus.Counter
	FramesDropped   prometheus.Counter
	DedupDropped    prometheus.Counter
	RepliesSent     prometheus.Counter
	ConsumeCycles   prometheus.Counter
	AuditsSubmitted prometheus.Counter

	// Labeled counters
	QueueDropped     *prometheus.CounterVec // priority
	TakeoversRaised  *prometheus.CounterVec // reason
	ErrorsTotal      *prometheus.CounterVec // category, level
	AlertsSent       *prometheus.CounterVec // channel
	Reconnects       *prometheus.CounterVec // conn
	EngagementEvents *prometheus.CounterVec // type

	// Histograms (seconds)
	ResponderDuration prometheus.Observer

	// Gauges
	QueueDepth   *prometheus.GaugeVec // priority
	ConnsByState *prometheus.GaugeVec // state
	RoomViewers  *prometheus.GaugeVec // room
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesIn = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_triage_messages_in_total", Help: "Decoded danmaku messages received"})
		FramesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_triage_frames_dropped_total", Help: "Frames dropped on decode failure"})
		DedupDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_triage_dedup_dropped_total", Help: "Messages suppressed as duplicates"})
		RepliesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_triage_replies_sent_total", Help: "Automated replies sent upstream"})
		ConsumeCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_triage_consume_cycles_total", Help: "Triage consumer iterations"})
		AuditsSubmitted = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_triage_audits_submitted_total", Help: "Drafted replies submitted for human audit"})
		QueueDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_triage_queue_dropped_total", Help: "Items dropped on a full queue level"}, []string{"priority"})
		TakeoversRaised = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_triage_takeovers_total", Help: "Human takeover requests raised"}, []string{"reason"})
		ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_triage_errors_total", Help: "Classified faults"}, []string{"category", "level"})
		AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_triage_alerts_sent_total", Help: "Alerts delivered per channel"}, []string{"channel"})
		Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_triage_reconnects_total", Help: "Reconnect attempts per connection"}, []string{"conn"})
		EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_triage_engagement_events_total", Help: "Non-chat frames by type"}, []string{"type"})
		ResponderDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_triage_responder_duration_seconds", Help: "Responder call duration seconds", Buckets: prometheus.DefBuckets})
		QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "chat_triage_queue_depth", Help: "Current items per queue level"}, []string{"priority"})
		ConnsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "chat_triage_connections", Help: "Supervised connections per state"}, []string{"state"})
		RoomViewers = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "chat_triage_room_viewers", Help: "Last reported viewer count per room"}, []string{"room"})
	})
}

// IncError counts a classified fault.
func IncError(category, level string) {
	if ErrorsTotal != nil {
		ErrorsTotal.WithLabelValues(category, level).Inc()
	}
}

// IncAlert counts a delivered alert.
func IncAlert(channel string) {
	if AlertsSent != nil {
		AlertsSent.WithLabelValues(channel).Inc()
	}
}

// IncReconnect counts a reconnect attempt for a named connection.
func IncReconnect(conn string) {
	if Reconnects != nil {
		Reconnects.WithLabelValues(conn).Inc()
	}
}

// IncQueueDropped counts a drop on a full queue level.
func IncQueueDropped(priority string) {
	if QueueDropped != nil {
		QueueDropped.WithLabelValues(priority).Inc()
	}
}

// IncTakeover counts a raised takeover request.
func IncTakeover(reason string) {
	if TakeoversRaised != nil {
		TakeoversRaised.WithLabelValues(reason).Inc()
	}
}

// IncEngagement counts a non-chat frame by type.
func IncEngagement(frameType string) {
	if EngagementEvents != nil {
		EngagementEvents.WithLabelValues(frameType).Inc()
	}
}

// IncAuditSubmitted counts a drafted reply entering the audit ledger.
func IncAuditSubmitted() {
	if AuditsSubmitted != nil {
		AuditsSubmitted.Inc()
	}
}

// SetQueueDepth records the current depth of one queue level.
func SetQueueDepth(priority string, n int) {
	if QueueDepth != nil {
		QueueDepth.WithLabelValues(priority).Set(float64(n))
	}
}

// SetConnsByState records how many connections sit in a state.
func SetConnsByState(state string, n int) {
	if ConnsByState != nil {
		ConnsByState.WithLabelValues(state).Set(float64(n))
	}
}

// SetRoomViewers records the viewer count reported by a room_info frame.
func SetRoomViewers(room string, n int) {
	if RoomViewers != nil {
		RoomViewers.WithLabelValues(room).Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
