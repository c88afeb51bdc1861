package triage

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/chat-triage/audit"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/faults"
	"github.com/onnwee/chat-triage/telemetry"
)

// ConnectionStates is the slice of connection health the stats job reports;
// *conn.Registry satisfies it.
type ConnectionStates interface {
	StateCounts() map[string]int
}

// StatsSources collects everything the periodic stats job reports on. Nil
// fields are skipped.
type StatsSources struct {
	Queue     *Queue
	Dedup     *Deduplicator
	Takeovers *escalate.TakeoverQueue
	Audits    *audit.Ledger
	Faults    *faults.Handler
	Conns     ConnectionStates
}

// StartStatsJob logs a stats snapshot every interval and keeps the gauges
// fresh. An immediate first run fires at boot so dashboards are not blank
// for a full interval.
func StartStatsJob(ctx context.Context, src StatsSources, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("stats job starting", slog.Duration("interval", interval))
	reportStats(src)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("stats job stopped")
			return
		case <-ticker.C:
			reportStats(src)
		}
	}
}

func reportStats(src StatsSources) {
	logger := slog.Default().With(slog.String("component", "stats"))
	if src.Queue != nil {
		qs := src.Queue.Stats()
		telemetry.SetQueueDepth(escalate.PriorityHigh.String(), qs.HighSize)
		telemetry.SetQueueDepth(escalate.PriorityMedium.String(), qs.MediumSize)
		telemetry.SetQueueDepth(escalate.PriorityLow.String(), qs.LowSize)
		logger.Info("queue stats",
			slog.Int("high", qs.HighSize),
			slog.Int("medium", qs.MediumSize),
			slog.Int("low", qs.LowSize),
			slog.Int("enqueued", qs.TotalEnqueued),
			slog.Int("dropped", qs.TotalDropped))
	}
	if src.Dedup != nil {
		ds := src.Dedup.Stats()
		logger.Info("dedup stats",
			slog.Int("tracked_senders", ds.TrackedSenders),
			slog.Int("suppressed", ds.Suppressed))
	}
	if src.Takeovers != nil {
		ts := src.Takeovers.Stats()
		logger.Info("takeover stats",
			slog.Int("total", ts.TotalTakeovers),
			slog.Int("pending", ts.PendingTakeovers),
			slog.Float64("resolution_rate", ts.ResolutionRate))
	}
	if src.Audits != nil {
		as := src.Audits.Stats()
		logger.Info("audit stats",
			slog.Int("submitted", as.TotalSubmitted),
			slog.Int("pending", as.PendingItems),
			slog.Float64("approval_rate", as.ApprovalRate))
	}
	if src.Faults != nil {
		fs := src.Faults.Stats()
		logger.Info("error stats",
			slog.Int("total", fs.TotalErrors),
			slog.Int("recent", fs.RecentErrors),
			slog.Int("unresolved", fs.UnresolvedErrors))
	}
	if src.Conns != nil {
		counts := src.Conns.StateCounts()
		for state, n := range counts {
			telemetry.SetConnsByState(state, n)
		}
		logger.Info("connection stats", slog.Any("by_state", counts))
	}
}
