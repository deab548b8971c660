package skypeetl

import (
	"sync"
	"time"
)

// ProgressSnapshot is a point-in-time read of a ProgressTracker.
type ProgressSnapshot struct {
	Phase      string
	Current    int64
	Total      int64
	PercentDone float64
	RatePerSec float64
	ETASeconds float64
}

// ProgressTracker accumulates processed-item counts for the active phase and
// derives a throughput rate and ETA from elapsed wall-clock time. Logging
// callers are expected to rate-limit themselves using ShouldLog so a tight
// per-message loop doesn't flood the log.
type ProgressTracker struct {
	mu          sync.Mutex
	phase       string
	current     int64
	total       int64
	startedAt   time.Time
	lastLoggedAt time.Time
}

// MinLogInterval is the minimum spacing between progress log lines.
const MinLogInterval = 5 * time.Second

// NewProgressTracker creates an idle ProgressTracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// Reset begins tracking a new phase against a known total item count. A
// total of 0 means unknown, and ETA will always report 0.
func (p *ProgressTracker) Reset(phase string, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
	p.current = 0
	p.total = total
	p.startedAt = time.Now()
	p.lastLoggedAt = time.Time{}
}

// Add increments the current count by n and returns a snapshot.
func (p *ProgressTracker) Add(n int64) ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	return p.snapshot()
}

// Snapshot returns the current progress state without mutating it.
func (p *ProgressTracker) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *ProgressTracker) snapshot() ProgressSnapshot {
	elapsed := time.Since(p.startedAt).Seconds()
	var rate, pct, eta float64
	if elapsed > 0 {
		rate = float64(p.current) / elapsed
	}
	if p.total > 0 {
		pct = float64(p.current) / float64(p.total) * 100
		if rate > 0 {
			remaining := float64(p.total-p.current) / rate
			if remaining > 0 {
				eta = remaining
			}
		}
	}
	return ProgressSnapshot{
		Phase:       p.phase,
		Current:     p.current,
		Total:       p.total,
		PercentDone: pct,
		RatePerSec:  rate,
		ETASeconds:  eta,
	}
}

// ShouldLog reports whether at least MinLogInterval has passed since the
// last time a caller logged progress, and marks "now" as logged if so.
func (p *ProgressTracker) ShouldLog() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if now.Sub(p.lastLoggedAt) < MinLogInterval {
		return false
	}
	p.lastLoggedAt = now
	return true
}
