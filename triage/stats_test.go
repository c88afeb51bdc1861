package triage

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/chat-triage/audit"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/faults"
	"github.com/onnwee/chat-triage/telemetry"
)

type staticStates map[string]int

func (s staticStates) StateCounts() map[string]int { return s }

func TestReportStatsHandlesAllSources(t *testing.T) {
	telemetry.Init()
	// Exercises every branch, including the empty one; failure mode is a panic.
	reportStats(StatsSources{})
	reportStats(StatsSources{
		Queue:     NewQueue(10),
		Dedup:     NewDeduplicator(time.Minute, 5),
		Takeovers: escalate.NewTakeoverQueue(10),
		Audits:    audit.NewLedger(10),
		Faults:    faults.NewHandler(nil, nil),
		Conns:     staticStates{"connected": 2, "failed": 1},
	})
}

func TestStatsJobStopsOnCancel(t *testing.T) {
	telemetry.Init()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartStatsJob(ctx, StatsSources{Queue: NewQueue(10)}, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stats job did not stop on cancel")
	}
}
