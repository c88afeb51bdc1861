// Package responder is the client for the external reply service: given one
// message and recent room chatter it returns an intent, a confidence score,
// and a drafted reply.
package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/chat-triage/chat"
)

// Result is the responder's verdict for one message. A low Confidence or a
// "high" RiskLevel makes the escalation rules hold the reply back.
type Result struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reply      string  `json:"reply"`
	RiskLevel  string  `json:"risk_level"`
}

// DefaultTimeout bounds one classify call when the client is built without
// an explicit timeout.
const DefaultTimeout = 10 * time.Second

// Client talks to the responder service over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New builds a client for baseURL; timeout <= 0 selects DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Classify asks the responder for a drafted reply to msg. recent carries the
// room's prior lines, oldest first.
func (c *Client) Classify(ctx context.Context, msg chat.Message, recent []string) (Result, error) {
	if c.BaseURL == "" {
		return Result{}, fmt.Errorf("responder url empty")
	}
	payload := struct {
		SenderID    string   `json:"sender_id"`
		DisplayName string   `json:"display_name"`
		Content     string   `json:"content"`
		RoomID      string   `json:"room_id"`
		Context     []string `json:"context"`
	}{msg.SenderID, msg.DisplayName, msg.Content, msg.RoomID, recent}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/classify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("responder status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, err
	}
	return res, nil
}
