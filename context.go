package skypeetl

import (
	"log/slog"
	"sync"
	"time"
)

// DatabaseConfig is the connection section of Config.
type DatabaseConfig struct {
	Host              string
	Port              int
	DBName            string
	User              string
	Password          string
	ConnectionTimeout time.Duration
	ApplicationName   string
}

// AttachmentConfig controls how the Transformer and Loader handle message
// attachments.
type AttachmentConfig struct {
	Download            bool
	Dir                 string
	GenerateThumbnails  bool
	ExtractMetadata     bool
}

// Config is the full set of run parameters a Context is built from. Zero
// values are filled in by internal/config's defaulting pass before a run
// starts; Context itself assumes Config is already validated.
type Config struct {
	Database DatabaseConfig

	// UserDisplayName seeds the exporting user's display name when the
	// source document carries none; Extract falls back to "Me" when this
	// is also empty, matching the original parser's unattributed default.
	UserDisplayName string

	OutputDir          string
	MemoryLimitMB      int
	ChunkSize          int
	BatchSize          int
	MaxWorkers         int
	ParallelProcessing bool

	Attachments AttachmentConfig
}

// Context is the single run-scoped object threaded through every pipeline
// component. It owns the run's configuration and identity plus the five
// mutex-guarded sub-managers; no component holds its own copy of run state.
type Context struct {
	Config Config

	TaskID     string
	StartTime  time.Time

	mu              sync.RWMutex
	UserID          string
	UserDisplayName string
	ExportDate      string
	ExportID        int64

	Phases      *PhaseManager
	Progress    *ProgressTracker
	Memory      *MemoryMonitor
	Errors      *ErrorLogger
	Checkpoints *CheckpointManager

	// Tracer is optional and nil-safe; components must check for nil (or
	// rely on NoopTracer, which NewContext installs by default)
	// before creating spans.
	Tracer Tracer

	Logger *slog.Logger
}

// NewContext wires a fresh Context and its sub-managers from cfg under a
// newly generated task_id (NewTaskID). Callers that already have a
// task_id pass it through NewContextWithTaskID instead.
func NewContext(cfg Config) *Context {
	return NewContextWithTaskID(cfg, NewTaskID())
}

// NewContextWithTaskID wires a Context for a specific task_id, used by the
// Orchestrator when resuming a previously started run.
func NewContextWithTaskID(cfg Config, taskID string) *Context {
	phases := NewPhaseManager()
	return &Context{
		Config:      cfg,
		TaskID:      taskID,
		StartTime:   time.Now(),
		Phases:      phases,
		Progress:    NewProgressTracker(),
		Memory:      NewMemoryMonitor(cfg.MemoryLimitMB),
		Errors:      NewErrorLogger(phases),
		Checkpoints: NewCheckpointManager(cfg.OutputDir),
		Tracer:      NoopTracer{},
		Logger:      slog.New(slog.DiscardHandler),
	}
}

// SetUserMetadata records run-level user identity discovered by the
// Extractor. Safe for concurrent use.
func (c *Context) SetUserMetadata(userID, userDisplayName, exportDate string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UserID = userID
	c.UserDisplayName = userDisplayName
	c.ExportDate = exportDate
}

// UserMetadata returns the run's recorded user identity.
func (c *Context) UserMetadata() (userID, userDisplayName, exportDate string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.UserID, c.UserDisplayName, c.ExportDate
}

// SetExportID records the export_id assigned by the Loader's Archive
// insert, for inclusion in the run summary.
func (c *Context) SetExportID(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ExportID = id
}

// GetExportID returns the recorded export_id, or 0 if the Load phase has
// not yet completed.
func (c *Context) GetExportID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ExportID
}

// RecordError is a convenience wrapper over Errors.Record.
func (c *Context) RecordError(phase string, kind ErrorKind, message string, details map[string]any, fatal bool, cause error) *PipelineError {
	return c.Errors.Record(phase, kind, message, details, fatal, cause)
}

// ToCheckpoint builds a serializable Checkpoint from the Context's current
// state, for saving at a phase boundary.
func (c *Context) ToCheckpoint() *Checkpoint {
	cp := &Checkpoint{
		TaskID:   c.TaskID,
		UserID:   c.UserID,
		ExportID: c.GetExportID(),
		Phases:   make(map[string]CheckpointPhase, len(PhaseNames)),
	}
	for _, name := range PhaseNames {
		snap := c.Phases.Snapshot(name)
		cp.Phases[name] = CheckpointPhase{Status: snap.Status, Metrics: snap.Metrics}
	}
	return cp
}

// ApplyCheckpoint restores phase statuses and identity fields from a
// previously saved Checkpoint, used when resuming a run.
func (c *Context) ApplyCheckpoint(cp *Checkpoint) {
	c.mu.Lock()
	c.UserID = cp.UserID
	c.ExportID = cp.ExportID
	c.mu.Unlock()

	for _, name := range PhaseNames {
		if ph, ok := cp.Phases[name]; ok && ph.Status == PhaseCompleted {
			c.Phases.EndPhase(name, PhaseCompleted)
			for k, v := range ph.Metrics {
				c.Phases.UpdateMetric(name, k, v)
			}
		}
	}
}
