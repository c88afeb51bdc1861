package faults

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/onnwee/chat-triage/telemetry"
)

// Alert is the immutable snapshot of a Record handed to notification channels.
type Alert struct {
	Level      Level          `json:"level"`
	Category   Category       `json:"category"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
	OccurredAt time.Time      `json:"timestamp"`
}

// MarshalJSON emits level and category as their string names.
func (a Alert) MarshalJSON() ([]byte, error) {
	type wire struct {
		Level      string         `json:"level"`
		Category   string         `json:"category"`
		Message    string         `json:"message"`
		Context    map[string]any `json:"context,omitempty"`
		OccurredAt time.Time      `json:"timestamp"`
	}
	return json.Marshal(wire{
		Level:      a.Level.String(),
		Category:   a.Category.String(),
		Message:    a.Message,
		Context:    a.Context,
		OccurredAt: a.OccurredAt,
	})
}

// NotificationChannel delivers an alert to one destination.
type NotificationChannel interface {
	Send(ctx context.Context, alert Alert) error
	Name() string
}

// AlertManager routes classified faults to notification channels by severity.
// Each channel registers with the least severe level it wants to receive, so
// a Fatal record fans out to every channel while Warn and Info normally reach
// only the log channel. Channel delivery failures are logged, never re-alerted.
type AlertManager struct {
	mu       sync.RWMutex
	channels []registeredChannel
	timeout  time.Duration
}

type registeredChannel struct {
	ch  NotificationChannel
	min Level
}

// NewAlertManager returns a manager with the log channel pre-registered at
// Info so every record is at least logged.
func NewAlertManager() *AlertManager {
	m := &AlertManager{timeout: 10 * time.Second}
	m.Register(LogChannel{}, LevelInfo)
	return m
}

// Register adds a channel that receives records at minLevel severity or worse.
func (m *AlertManager) Register(ch NotificationChannel, minLevel Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, registeredChannel{ch: ch, min: minLevel})
}

// Notify fans the record out to every channel whose threshold admits its
// level. Delivery runs in its own goroutine per channel with a bounded
// timeout so callers in hot loops are never blocked on a slow webhook.
func (m *AlertManager) Notify(rec *Record) {
	alert := Alert{
		Level:      rec.Level,
		Category:   rec.Category,
		Message:    rec.Message,
		Context:    rec.Context,
		OccurredAt: rec.OccurredAt,
	}

	m.mu.RLock()
	targets := make([]registeredChannel, 0, len(m.channels))
	for _, rc := range m.channels {
		if alert.Level <= rc.min {
			targets = append(targets, rc)
		}
	}
	m.mu.RUnlock()

	for _, rc := range targets {
		go func(rc registeredChannel) {
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			defer cancel()
			if err := rc.ch.Send(ctx, alert); err != nil {
				slog.Error("alert delivery failed", slog.String("channel", rc.ch.Name()), slog.Any("err", err))
				return
			}
			telemetry.IncAlert(rc.ch.Name())
		}(rc)
	}
}

// LogChannel writes alerts to the process log at the matching slog level.
type LogChannel struct{}

// Name implements NotificationChannel.
func (LogChannel) Name() string { return "log" }

// Send implements NotificationChannel.
func (LogChannel) Send(_ context.Context, alert Alert) error {
	attrs := []any{
		slog.String("category", alert.Category.String()),
		slog.String("level", alert.Level.String()),
		slog.Any("context", alert.Context),
	}
	switch alert.Level {
	case LevelFatal, LevelError:
		slog.Error(alert.Message, attrs...)
	case LevelWarn:
		slog.Warn(alert.Message, attrs...)
	default:
		slog.Info(alert.Message, attrs...)
	}
	return nil
}

// WebhookChannel POSTs the alert as JSON to a monitoring endpoint.
type WebhookChannel struct {
	URL    string
	Client *http.Client
}

// NewWebhookChannel builds a webhook channel with a 10s client timeout.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

// Name implements NotificationChannel.
func (c *WebhookChannel) Name() string { return "webhook" }

// Send implements NotificationChannel.
func (c *WebhookChannel) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post alert: unexpected status %d", resp.StatusCode)
	}
	return nil
}
