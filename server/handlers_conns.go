package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// HandleConnections lists connections or adds a new one.
func (h *Handlers) HandleConnections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Registry.Stats())
	case http.MethodPost:
		h.handleAddConnection(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handlers) handleAddConnection(w http.ResponseWriter, r *http.Request) {
	if h.deps.NewSupervisor == nil {
		writeError(w, http.StatusNotImplemented, "connection spawning not configured")
		return
	}
	var req struct {
		Name   string `json:"name"`
		URL    string `json:"url"`
		RoomID string `json:"room_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	sup := h.deps.NewSupervisor(req.Name, req.URL, req.RoomID)
	if !h.deps.Registry.Add(sup) {
		writeError(w, http.StatusConflict, "connection already exists")
		return
	}
	go sup.Run(h.ctx)

	slog.Info("connection added",
		slog.String("name", sup.Name()),
		slog.String("url", req.URL),
		slog.String("component", "http"))
	writeJSON(w, http.StatusCreated, sup.Stats())
}

// HandleConnectionsDispatcher routes /api/connections/{name} and
// /api/connections/{name}/reset.
func (h *Handlers) HandleConnectionsDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/connections/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	name := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		sup, ok := h.deps.Registry.Get(name)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown connection")
			return
		}
		writeJSON(w, http.StatusOK, sup.Stats())

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if !h.deps.Registry.Remove(name) {
			writeError(w, http.StatusNotFound, "unknown connection")
			return
		}
		slog.Info("connection removed", slog.String("name", name), slog.String("component", "http"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	case len(parts) == 2 && parts[1] == "reset" && r.Method == http.MethodPost:
		sup, ok := h.deps.Registry.Get(name)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown connection")
			return
		}
		if !sup.Reset() {
			writeError(w, http.StatusConflict, "connection is not in failed state")
			return
		}
		slog.Info("connection reset", slog.String("name", name), slog.String("component", "http"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HandleBroadcast sends one message to every connected room.
func (h *Handlers) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	delivered := h.deps.Registry.Broadcast(req.Message)
	writeJSON(w, http.StatusOK, map[string]int{"delivered": delivered})
}
