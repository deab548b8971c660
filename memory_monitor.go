package skypeetl

import (
	"runtime"
	"sync"
)

// MemoryPressure classifies the current heap allocation reading against the
// monitor's configured thresholds.
type MemoryPressure string

const (
	MemoryNormal   MemoryPressure = "normal"
	MemoryWarning  MemoryPressure = "warning"
	MemoryCritical MemoryPressure = "critical"
)

// MemorySnapshot is one polled reading.
type MemorySnapshot struct {
	AllocBytes uint64
	LimitBytes uint64
	Pressure   MemoryPressure
}

// MemoryMonitor polls the Go runtime's heap allocation figure against a
// configured limit, applying warn (80%) and critical (95%) thresholds. It
// does not read process RSS. At critical pressure it requests a GC cycle.
// The Transformer polls it once per conversation; no caller changes its
// worker count, chunk size or batch size in response to the reading.
type MemoryMonitor struct {
	mu        sync.Mutex
	limit     uint64
	history   []MemorySnapshot
	maxHistory int
}

const (
	memoryWarnRatio     = 0.80
	memoryCriticalRatio = 0.95
)

// NewMemoryMonitor creates a monitor bounded at limitMB megabytes. A
// limitMB of 0 disables pressure detection; Poll always reports normal.
func NewMemoryMonitor(limitMB int) *MemoryMonitor {
	return &MemoryMonitor{
		limit:      uint64(limitMB) * 1024 * 1024,
		maxHistory: 20,
	}
}

// Poll reads current heap allocation via runtime.ReadMemStats, classifies
// it, appends to the bounded history, and triggers a GC cycle on a fresh
// transition into critical pressure.
func (m *MemoryMonitor) Poll() MemorySnapshot {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MemorySnapshot{AllocBytes: stats.Alloc, LimitBytes: m.limit, Pressure: MemoryNormal}
	if m.limit > 0 {
		ratio := float64(stats.Alloc) / float64(m.limit)
		switch {
		case ratio >= memoryCriticalRatio:
			snap.Pressure = MemoryCritical
		case ratio >= memoryWarnRatio:
			snap.Pressure = MemoryWarning
		}
	}

	wasCritical := len(m.history) > 0 && m.history[len(m.history)-1].Pressure == MemoryCritical
	m.history = append(m.history, snap)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}

	if snap.Pressure == MemoryCritical && !wasCritical {
		runtime.GC()
	}
	return snap
}

// History returns a copy of the retained snapshot history, oldest first.
func (m *MemoryMonitor) History() []MemorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MemorySnapshot, len(m.history))
	copy(out, m.history)
	return out
}
