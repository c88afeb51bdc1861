package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponder is a scripted stand-in for the external responder service.
type MockResponder struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	response map[string]any
	requests []map[string]any
}

// NewMockResponder starts a responder whose /classify endpoint answers with
// the scripted result.
func NewMockResponder(t *testing.T) *MockResponder {
	t.Helper()
	m := &MockResponder{status: http.StatusOK}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Close)
	return m
}

func (m *MockResponder) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/classify" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var req map[string]any
	_ = json.NewDecoder(r.Body).Decode(&req)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	status := m.status
	resp := m.response
	m.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("scripted failure"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Script sets the result the next classify calls will return.
func (m *MockResponder) Script(intent string, confidence float64, reply, riskLevel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = http.StatusOK
	m.response = map[string]any{
		"intent":     intent,
		"confidence": confidence,
		"reply":      reply,
		"risk_level": riskLevel,
	}
}

// Fail makes classify answer with the given status code instead.
func (m *MockResponder) Fail(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// Requests returns the decoded request bodies seen so far.
func (m *MockResponder) Requests() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.requests))
	copy(out, m.requests)
	return out
}
