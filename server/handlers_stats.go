package server

import (
	"net/http"

	"github.com/onnwee/chat-triage/audit"
	"github.com/onnwee/chat-triage/conn"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/faults"
	"github.com/onnwee/chat-triage/triage"
)

// statsResponse is the aggregate operational snapshot.
type statsResponse struct {
	Queue       triage.QueueStats      `json:"queue"`
	Dedup       triage.DedupStats      `json:"dedup"`
	Takeovers   escalate.TakeoverStats `json:"takeovers"`
	Audits      audit.Stats            `json:"audits"`
	Errors      faults.Stats           `json:"errors"`
	Connections conn.RegistryStats     `json:"connections"`
}

// HandleStats returns one JSON document combining every subsystem snapshot.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Queue:       h.deps.Queue.Stats(),
		Dedup:       h.deps.Dedup.Stats(),
		Takeovers:   h.deps.Takeovers.Stats(),
		Audits:      h.deps.Audits.Stats(),
		Errors:      h.deps.Faults.Stats(),
		Connections: h.deps.Registry.Stats(),
	})
}

// HandleErrors returns the fault handler snapshot on its own.
func (h *Handlers) HandleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Faults.Stats())
}
