package conn

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry tracks supervisors by name and answers aggregate questions about
// them. It does not start or own their run loops.
type Registry struct {
	mu   sync.RWMutex
	sups map[string]*Supervisor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sups: make(map[string]*Supervisor)}
}

// Add registers sup under its name. Adding a name twice is a no-op that
// reports false and leaves the existing supervisor in place.
func (r *Registry) Add(sup *Supervisor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sups[sup.Name()]; ok {
		return false
	}
	r.sups[sup.Name()] = sup
	return true
}

// Get returns the named supervisor.
func (r *Registry) Get(name string) (*Supervisor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sup, ok := r.sups[name]
	return sup, ok
}

// Remove disconnects and forgets the named supervisor.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	sup, ok := r.sups[name]
	delete(r.sups, name)
	r.mu.Unlock()
	if ok {
		sup.Disconnect()
	}
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sups))
	for name := range r.sups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StateCounts returns how many supervisors sit in each state.
func (r *Registry) StateCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, sup := range r.sups {
		counts[sup.State().String()]++
	}
	return counts
}

// RegistryStats aggregates every supervisor's snapshot.
type RegistryStats struct {
	Total       int            `json:"total_connections"`
	ByState     map[string]int `json:"by_state"`
	Connections []Stats        `json:"connections"`
}

// Stats returns the aggregate snapshot with connections sorted by name.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := RegistryStats{
		Total:       len(r.sups),
		ByState:     make(map[string]int),
		Connections: make([]Stats, 0, len(r.sups)),
	}
	for _, sup := range r.sups {
		out.ByState[sup.State().String()]++
		out.Connections = append(out.Connections, sup.Stats())
	}
	sort.Slice(out.Connections, func(i, j int) bool {
		return out.Connections[i].Name < out.Connections[j].Name
	})
	return out
}

// Broadcast sends v on every connected supervisor and returns how many
// sends succeeded.
func (r *Registry) Broadcast(v any) int {
	r.mu.RLock()
	sups := make([]*Supervisor, 0, len(r.sups))
	for _, sup := range r.sups {
		sups = append(sups, sup)
	}
	r.mu.RUnlock()

	sent := 0
	for _, sup := range sups {
		if sup.State() != StateConnected {
			continue
		}
		if err := sup.Send(v); err != nil {
			slog.Debug("broadcast send failed",
				slog.String("conn", sup.Name()),
				slog.Any("err", err))
			continue
		}
		sent++
	}
	return sent
}

// ResetFailed releases every supervisor parked in the failed state back into
// its reconnect loop and returns how many were released.
func (r *Registry) ResetFailed() int {
	r.mu.RLock()
	sups := make([]*Supervisor, 0, len(r.sups))
	for _, sup := range r.sups {
		sups = append(sups, sup)
	}
	r.mu.RUnlock()

	reset := 0
	for _, sup := range sups {
		if sup.Reset() {
			slog.Info("failed connection reset", slog.String("conn", sup.Name()))
			reset++
		}
	}
	return reset
}

// CloseAll disconnects every supervisor. Entries stay registered so a final
// stats scrape still sees them.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sup := range r.sups {
		sup.Disconnect()
	}
}
