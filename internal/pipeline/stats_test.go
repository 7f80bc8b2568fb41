package pipeline

import (
	"testing"
	"time"
)

func TestFillStatsSnapshot(t *testing.T) {
	stats := NewFillStats(time.Hour)
	for i, st := range []Status{StatusFilled, StatusFilled, StatusNoFields, StatusFailed, StatusFilled} {
		stats.Observe(Result{Status: st, Duration: time.Duration(i+1) * 100 * time.Millisecond})
	}

	snap := stats.Snapshot()
	if snap.Documents != 5 {
		t.Fatalf("expected documents=5, got %d", snap.Documents)
	}
	if snap.Filled != 3 || snap.NoFields != 1 || snap.Failed != 1 {
		t.Errorf("unexpected outcome counts: %+v", snap)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Errorf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Errorf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Errorf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Errorf("expected p95=480, got %f", snap.P95Ms)
	}
}

func TestFillStatsPrunesOldSamples(t *testing.T) {
	stats := NewFillStats(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats.now = func() time.Time { return now }

	stats.Observe(Result{Status: StatusFilled, Duration: time.Second})
	now = now.Add(2 * time.Minute)

	if snap := stats.Snapshot(); snap.Documents != 0 {
		t.Fatalf("expected documents=0 after prune, got %d", snap.Documents)
	}

	stats.Observe(Result{Status: StatusFailed, Duration: 200 * time.Millisecond})
	snap := stats.Snapshot()
	if snap.Documents != 1 || snap.Failed != 1 {
		t.Fatalf("expected one failed document, got %+v", snap)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Errorf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestFillStatsEmpty(t *testing.T) {
	snap := NewFillStats(0).Snapshot()
	if snap != (StatsSnapshot{}) {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}
