package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	if err := metrics.Track("mail:registration").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("smtp down")
	if err := metrics.Track("mail:registration").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error to be returned untouched, got %v", err)
	}

	if got := testutil.ToFloat64(metrics.runs.WithLabelValues("mail:registration", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.failures.WithLabelValues("mail:registration")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestNilMetricsTrackerIsNoop(t *testing.T) {
	var metrics *Metrics
	if err := metrics.Track("noop").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
