package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if MessagesIn == nil {
		t.Error("MessagesIn counter not initialized")
	}
	if ErrorsTotal == nil {
		t.Error("ErrorsTotal counter vec not initialized")
	}
	if QueueDepth == nil {
		t.Error("QueueDepth gauge vec not initialized")
	}
	if ResponderDuration == nil {
		t.Error("ResponderDuration histogram not initialized")
	}
}

func TestLabeledHelpers(t *testing.T) {
	Init()

	// Helpers must accept arbitrary label values without panicking.
	IncError("connection", "ERROR")
	IncError("system", "FATAL")
	IncAlert("log")
	IncAlert("webhook")
	IncReconnect("primary")
	IncQueueDropped("high")
	IncTakeover("severe_complaint")
	IncEngagement("gift")
	SetConnsByState("connected", 2)
	SetRoomViewers("r1", 1234)

	for _, depth := range []int{0, 10, 50, 100} {
		SetQueueDepth("medium", depth)
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil {
		t.Fatal("Histogram metric is nil")
	}
	if *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation(empty ctx) = %q, want empty", got)
	}

	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation() = %q, want abc-123", got)
	}

	if logger := LoggerWithCorr(ctx); logger == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
