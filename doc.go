// Package skypeetl implements a resumable, observable, memory-bounded ETL
// pipeline that ingests Skype chat export archives (tar or standalone JSON)
// and lands a normalized relational representation of users, conversations,
// messages, and attachments into a PostgreSQL-compatible store.
//
// # Quick Start
//
// A run is driven through a shared, run-scoped Context that carries
// configuration, progress, memory pressure signals, checkpoints, and
// structured errors across the three pipeline phases:
//
//	cfg := skypeetl.Config{ /* ... */ }
//	runCtx := skypeetl.NewContext(cfg)
//	orch := pipeline.New(runCtx, sourcePath, loader, handlers.NewFactory())
//	result, err := orch.Run(ctx, false)
//
// # Core Components
//
//   - [Context] — shared run state: config, phases, progress, memory, errors, checkpoints
//   - [PhaseManager] — tracks extract/transform/load phase status and metrics
//   - [ProgressTracker] — cumulative progress with rate/ETA and rate-limited logging
//   - [MemoryMonitor] — polls Go heap allocation (not process RSS) against warn/critical thresholds
//   - [ErrorLogger] — records fatal and non-fatal errors onto the run
//   - [CheckpointManager] — persists and restores Context state across runs
//
// # Included Implementations
//
// Extract/Transform: skypeetl/extract, skypeetl/handlers, skypeetl/transform.
// Load: skypeetl/store/postgres. Orchestration: skypeetl/pipeline.
// Configuration: skypeetl/internal/config. Observability: skypeetl/observer.
//
// See cmd/skypeetl for a complete reference application.
package skypeetl
