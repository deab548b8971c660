package skypeetl

import "sync"

// PhaseStatus is the lifecycle state of a named pipeline phase.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseWarning    PhaseStatus = "warning"
	PhaseFailed     PhaseStatus = "failed"
)

// PhaseNames is the strict ordering the Orchestrator enforces.
var PhaseNames = []string{"extract", "transform", "load"}

// PhaseInfo is a snapshot of one phase's recorded state.
type PhaseInfo struct {
	Name      string
	Status    PhaseStatus
	StartedAt int64
	EndedAt   int64
	DurationS float64
	Metrics   map[string]any
}

// PhaseManager tracks status, timing, and metrics for the extract/transform/
// load phases. All mutations are mutex-guarded so concurrent transform
// workers can call UpdateMetric without racing the orchestrator goroutine.
type PhaseManager struct {
	mu     sync.Mutex
	phases map[string]*PhaseInfo
}

// NewPhaseManager creates a PhaseManager with all known phases pending.
func NewPhaseManager() *PhaseManager {
	pm := &PhaseManager{phases: make(map[string]*PhaseInfo)}
	for _, n := range PhaseNames {
		pm.phases[n] = &PhaseInfo{Name: n, Status: PhasePending, Metrics: make(map[string]any)}
	}
	return pm
}

// StartPhase marks a phase in_progress and records its start time and,
// when known, the total item counts it will process (used by the
// ProgressTracker and the final run summary).
func (pm *PhaseManager) StartPhase(name string, totalConversations, totalMessages int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p := pm.ensure(name)
	p.Status = PhaseInProgress
	p.StartedAt = NowUnix()
	if totalConversations > 0 {
		p.Metrics["total_conversations"] = totalConversations
	}
	if totalMessages > 0 {
		p.Metrics["total_messages"] = totalMessages
	}
}

// EndPhase records a phase's completion, duration, and final status.
// status must be one of completed, warning, or failed.
func (pm *PhaseManager) EndPhase(name string, status PhaseStatus) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p := pm.ensure(name)
	p.EndedAt = NowUnix()
	if p.StartedAt > 0 {
		p.DurationS = float64(p.EndedAt - p.StartedAt)
	}
	p.Status = status
}

// UpdateMetric records or overwrites a single metric under the named phase.
func (pm *PhaseManager) UpdateMetric(name, key string, value any) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p := pm.ensure(name)
	p.Metrics[key] = value
}

// Status returns the current status of a phase.
func (pm *PhaseManager) Status(name string) PhaseStatus {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.ensure(name).Status
}

// Snapshot returns a deep-enough copy of a phase's state for reporting.
func (pm *PhaseManager) Snapshot(name string) PhaseInfo {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p := pm.ensure(name)
	metrics := make(map[string]any, len(p.Metrics))
	for k, v := range p.Metrics {
		metrics[k] = v
	}
	cp := *p
	cp.Metrics = metrics
	return cp
}

// CanResumeFrom reports whether the run may skip straight to phase name,
// which requires every phase before it (in PhaseNames order) to be completed.
func (pm *PhaseManager) CanResumeFrom(name string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, n := range PhaseNames {
		if n == name {
			return true
		}
		if pm.ensure(n).Status != PhaseCompleted {
			return false
		}
	}
	return false
}

// markFailed and markWarning are invoked by ErrorLogger.Record; they never
// downgrade a terminal failed status back to warning.
func (pm *PhaseManager) markFailed(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.ensure(name).Status = PhaseFailed
}

func (pm *PhaseManager) markWarning(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p := pm.ensure(name)
	if p.Status != PhaseFailed {
		p.Status = PhaseWarning
	}
}

// ensure must be called with pm.mu held.
func (pm *PhaseManager) ensure(name string) *PhaseInfo {
	p, ok := pm.phases[name]
	if !ok {
		p = &PhaseInfo{Name: name, Status: PhasePending, Metrics: make(map[string]any)}
		pm.phases[name] = p
	}
	return p
}
