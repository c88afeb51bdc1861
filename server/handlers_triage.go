package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/chat-triage/audit"
)

// HandleTakeovers lists pending takeover requests, optionally filtered by
// urgency.
func (h *Handlers) HandleTakeovers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pending := h.deps.Takeovers.Pending(r.URL.Query().Get("urgency"))
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}

// HandleTakeoversDispatcher routes /api/takeovers/{id}/resolve.
func (h *Handlers) HandleTakeoversDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/takeovers/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "resolve" || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resolved, err := h.deps.Takeovers.Resolve(parts[0], req.Resolution)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown takeover request")
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// HandleAudits lists pending audit items, optionally filtered by risk level.
func (h *Handlers) HandleAudits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pending := h.deps.Audits.Pending(r.URL.Query().Get("risk"))
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}

// HandleAuditsDispatcher routes /api/audits/{id}/approve, reject and modify.
func (h *Handlers) HandleAuditsDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/audits/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]

	var req struct {
		Reviewer string `json:"reviewer"`
		Notes    string `json:"notes"`
		Reply    string `json:"reply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		item audit.Item
		err  error
	)
	switch parts[1] {
	case "approve":
		item, err = h.deps.Audits.Approve(id, req.Reviewer)
	case "reject":
		item, err = h.deps.Audits.Reject(id, req.Reviewer, req.Notes)
	case "modify":
		if req.Reply == "" {
			writeError(w, http.StatusBadRequest, "reply is required for modify")
			return
		}
		item, err = h.deps.Audits.Modify(id, req.Reviewer, req.Reply)
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case errors.Is(err, audit.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "unknown audit item")
	case errors.Is(err, audit.ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, "audit item already reviewed")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, item)
	}
}
