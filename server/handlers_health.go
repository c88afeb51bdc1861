package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with per-subsystem checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"connections", func() error {
			st := h.deps.Registry.Stats()
			if st.Total > 0 && st.ByState["failed"] == st.Total {
				return fmt.Errorf("all %d connections failed", st.Total)
			}
			return nil
		}},
		{"queue", func() error {
			if qs := h.deps.Queue.Stats(); qs.HighSize >= h.deps.Queue.Cap() {
				return fmt.Errorf("high priority level full (%d items)", qs.HighSize)
			}
			return nil
		}},
		{"cache", func() error {
			if h.deps.Cache == nil {
				return nil
			}
			return h.deps.Cache.Ping(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
