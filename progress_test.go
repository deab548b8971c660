package skypeetl

import "testing"

func TestProgressTrackerAdd(t *testing.T) {
	p := NewProgressTracker()
	p.Reset("transform", 100)

	snap := p.Add(25)
	if snap.Current != 25 || snap.Total != 100 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.PercentDone != 25 {
		t.Fatalf("expected 25%% done, got %v", snap.PercentDone)
	}
}

func TestProgressTrackerUnknownTotal(t *testing.T) {
	p := NewProgressTracker()
	p.Reset("extract", 0)
	snap := p.Add(5)
	if snap.PercentDone != 0 || snap.ETASeconds != 0 {
		t.Fatalf("expected no percent/eta with unknown total, got %+v", snap)
	}
}

func TestProgressTrackerShouldLogRateLimits(t *testing.T) {
	p := NewProgressTracker()
	p.Reset("load", 10)
	if !p.ShouldLog() {
		t.Fatal("first call should log")
	}
	if p.ShouldLog() {
		t.Fatal("immediate second call should be rate-limited")
	}
}
