package faults

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/chat-triage/telemetry"
)

// maxHistory bounds the rolling record history.
const maxHistory = 1000

// recentWindow is the lookback used for the recent/unresolved stats.
const recentWindow = time.Hour

// Handler is the single entry point for fault handling: classify, record,
// alert, attempt recovery. Safe for concurrent use from every pipeline stage.
type Handler struct {
	mu      sync.Mutex
	history []*Record
	total   int
	counts  map[string]int

	alerts   *AlertManager
	recovery *AutoRecovery
}

// NewHandler wires a handler from its alert and recovery collaborators.
// Either may be nil, which disables that path (used in tests).
func NewHandler(alerts *AlertManager, recovery *AutoRecovery) *Handler {
	return &Handler{
		counts:   make(map[string]int),
		alerts:   alerts,
		recovery: recovery,
	}
}

// Handle classifies and records the fault, notifies alert channels by level,
// and runs the category's recovery strategy. The returned record reports
// whether recovery resolved the fault.
func (h *Handler) Handle(ctx context.Context, err error, msg string, kv map[string]any) *Record {
	rec := h.record(ctx, err, msg, kv)
	if h.recovery != nil && h.recovery.Attempt(ctx, rec) {
		h.mu.Lock()
		rec.Resolved = true
		h.mu.Unlock()
	}
	return rec
}

// Report classifies, records and alerts without attempting recovery. Stages
// that own their failure handling (the connection supervisor drives its own
// reconnects) use this to keep the shared stats and alerting flowing without
// a second recovery fighting theirs.
func (h *Handler) Report(ctx context.Context, err error, msg string, kv map[string]any) *Record {
	return h.record(ctx, err, msg, kv)
}

func (h *Handler) record(ctx context.Context, err error, msg string, kv map[string]any) *Record {
	category, level := Classify(err, msg)
	rec := &Record{
		Level:      level,
		Category:   category,
		Message:    msg,
		Err:        err,
		Context:    kv,
		OccurredAt: time.Now().UTC(),
	}

	h.mu.Lock()
	h.history = append(h.history, rec)
	if len(h.history) > maxHistory {
		h.history = h.history[len(h.history)-maxHistory:]
	}
	h.total++
	h.counts[fmt.Sprintf("%s:%s", category, level)]++
	h.mu.Unlock()

	telemetry.IncError(category.String(), level.String())
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Debug("fault recorded",
			slog.String("category", category.String()),
			slog.String("level", level.String()),
			slog.String("msg", msg),
			slog.Any("err", err))
	}

	if h.alerts != nil {
		h.alerts.Notify(rec)
	}
	return rec
}

// Stats is the error-statistics snapshot exposed on the stats surface.
type Stats struct {
	TotalErrors      int            `json:"total_errors"`
	RecentErrors     int            `json:"recent_errors"`
	UnresolvedErrors int            `json:"unresolved_errors"`
	ErrorCounts      map[string]int `json:"error_counts"`
}

// Stats returns totals, the last hour's counts and a copy of the
// category:LEVEL counters.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-recentWindow)
	recent, unresolved := 0, 0
	for _, rec := range h.history {
		if rec.OccurredAt.Before(cutoff) {
			continue
		}
		recent++
		if !rec.Resolved {
			unresolved++
		}
	}

	counts := make(map[string]int, len(h.counts))
	for k, v := range h.counts {
		counts[k] = v
	}
	return Stats{
		TotalErrors:      h.total,
		RecentErrors:     recent,
		UnresolvedErrors: unresolved,
		ErrorCounts:      counts,
	}
}
