package faults

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// RecoveryFunc executes one recovery attempt for a fault. It should return
// promptly when ctx is cancelled.
type RecoveryFunc func(ctx context.Context, rec *Record) error

// AutoRecovery holds per-category recovery strategies with a shared retry
// budget. Connection faults reconnect, cache faults clear and retry, API and
// network faults wait out an exponential backoff; speech, model and system
// faults have no automatic strategy.
type AutoRecovery struct {
	mu         sync.RWMutex
	handlers   map[Category]RecoveryFunc
	maxRetries int
}

// DefaultMaxRetries bounds recovery attempts per record.
const DefaultMaxRetries = 3

// NewAutoRecovery returns a recovery registry with backoff strategies
// pre-registered for the API and network categories. Connection and cache
// strategies need live collaborators (the registry, the cache client) and are
// registered by the caller. maxRetries <= 0 selects DefaultMaxRetries.
func NewAutoRecovery(maxRetries int) *AutoRecovery {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	r := &AutoRecovery{
		handlers:   make(map[Category]RecoveryFunc),
		maxRetries: maxRetries,
	}
	r.Register(CategoryAPI, BackoffWait)
	r.Register(CategoryNetwork, BackoffWait)
	return r
}

// Register installs the strategy for a category, replacing any previous one.
func (r *AutoRecovery) Register(cat Category, fn RecoveryFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[cat] = fn
}

// Attempt runs the category's strategy once. It refuses (returns false) when
// the record has no strategy or its retry budget is spent. A successful
// attempt increments the record's retry count.
func (r *AutoRecovery) Attempt(ctx context.Context, rec *Record) bool {
	if rec.RetryCount >= r.maxRetries {
		slog.Warn("recovery budget exhausted",
			slog.String("category", rec.Category.String()),
			slog.Int("retry_count", rec.RetryCount))
		return false
	}

	r.mu.RLock()
	fn, ok := r.handlers[rec.Category]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if err := fn(ctx, rec); err != nil {
		slog.Error("recovery attempt failed",
			slog.String("category", rec.Category.String()),
			slog.Any("err", err))
		return false
	}
	rec.RetryCount++
	return true
}

// MaxRetries reports the configured retry budget.
func (r *AutoRecovery) MaxRetries() int { return r.maxRetries }

// BackoffWait sleeps out an exponential backoff derived from the record's
// retry count, capped at 60s, returning early if ctx ends.
func BackoffWait(ctx context.Context, rec *Record) error {
	delay := time.Duration(1.5 * math.Pow(2, float64(rec.RetryCount)) * float64(time.Second))
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
