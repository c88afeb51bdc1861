package faults

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHandlerRecordsAndCounts(t *testing.T) {
	h := NewHandler(nil, nil)

	h.Report(context.Background(), errors.New("websocket: close 1006"), "read loop ended", nil)
	h.Report(context.Background(), errors.New("websocket: close 1006"), "read loop ended", nil)
	h.Report(context.Background(), errors.New("http 503"), "responder call failed", map[string]any{"room": "r1"})

	stats := h.Stats()
	if stats.TotalErrors != 3 {
		t.Errorf("TotalErrors = %d, want 3", stats.TotalErrors)
	}
	if stats.RecentErrors != 3 {
		t.Errorf("RecentErrors = %d, want 3", stats.RecentErrors)
	}
	if stats.UnresolvedErrors != 3 {
		t.Errorf("UnresolvedErrors = %d, want 3", stats.UnresolvedErrors)
	}
	if got := stats.ErrorCounts["connection:ERROR"]; got != 2 {
		t.Errorf("ErrorCounts[connection:ERROR] = %d, want 2", got)
	}
	if got := stats.ErrorCounts["api:WARN"]; got != 1 {
		t.Errorf("ErrorCounts[api:WARN] = %d, want 1", got)
	}
}

func TestHandlerHistoryBounded(t *testing.T) {
	h := NewHandler(nil, nil)
	for i := 0; i < maxHistory+50; i++ {
		h.Report(context.Background(), errors.New("dns lookup failed"), "", nil)
	}

	stats := h.Stats()
	if stats.TotalErrors != maxHistory+50 {
		t.Errorf("TotalErrors = %d, want %d", stats.TotalErrors, maxHistory+50)
	}
	if stats.RecentErrors != maxHistory {
		t.Errorf("RecentErrors = %d, want bounded at %d", stats.RecentErrors, maxHistory)
	}
}

func TestHandleRunsRecovery(t *testing.T) {
	recovery := NewAutoRecovery(3)
	attempts := 0
	recovery.Register(CategoryConnection, func(ctx context.Context, rec *Record) error {
		attempts++
		return nil
	})

	h := NewHandler(nil, recovery)
	rec := h.Handle(context.Background(), errors.New("websocket: close 1006"), "read loop ended", nil)

	if attempts != 1 {
		t.Errorf("recovery attempts = %d, want 1", attempts)
	}
	if !rec.Resolved {
		t.Error("record not marked resolved after successful recovery")
	}
	if rec.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", rec.RetryCount)
	}

	stats := h.Stats()
	if stats.UnresolvedErrors != 0 {
		t.Errorf("UnresolvedErrors = %d, want 0 after recovery", stats.UnresolvedErrors)
	}
}

func TestReportSkipsRecovery(t *testing.T) {
	recovery := NewAutoRecovery(3)
	attempts := 0
	recovery.Register(CategoryConnection, func(ctx context.Context, rec *Record) error {
		attempts++
		return nil
	})

	h := NewHandler(nil, recovery)
	rec := h.Report(context.Background(), errors.New("websocket: close 1006"), "supervisor handles its own reconnect", nil)

	if attempts != 0 {
		t.Errorf("recovery attempts = %d, want 0 for Report", attempts)
	}
	if rec.Resolved {
		t.Error("Report must not mark records resolved")
	}
}

func TestHandlerFatalAlwaysAlerts(t *testing.T) {
	ch := newCaptureChannel(4)
	alerts := NewAlertManager()
	alerts.Register(ch, LevelFatal)

	recovery := NewAutoRecovery(3)
	recovery.Register(CategoryConnection, func(ctx context.Context, rec *Record) error { return nil })

	h := NewHandler(alerts, recovery)
	h.Handle(context.Background(), errors.New("websocket reconnect: max retries reached"), "giving up", nil)

	select {
	case alert := <-ch.got:
		if alert.Level != LevelFatal {
			t.Errorf("alert level = %v, want %v", alert.Level, LevelFatal)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fatal record never reached the alert channel")
	}
}
