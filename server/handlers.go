package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onnwee/chat-triage/audit"
	"github.com/onnwee/chat-triage/cache"
	"github.com/onnwee/chat-triage/conn"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/faults"
	"github.com/onnwee/chat-triage/triage"
)

// Deps carries the live subsystems the HTTP API exposes. Cache is optional;
// the readiness probe skips it when nil.
type Deps struct {
	Registry  *conn.Registry
	Queue     *triage.Queue
	Dedup     *triage.Deduplicator
	Takeovers *escalate.TakeoverQueue
	Audits    *audit.Ledger
	Faults    *faults.Handler
	Cache     *cache.Cache

	// NewSupervisor builds a supervisor wired into the triage pipeline.
	// POST /api/connections uses it and runs the result under the mux context.
	NewSupervisor func(name, url, roomID string) *conn.Supervisor
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps Deps
	ctx  context.Context
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, deps Deps) *Handlers {
	return &Handlers{deps: deps, ctx: ctx}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
