// Package pipeline wires the Extractor, Transformer, and Loader into the
// strict extract -> transform -> load sequence, with checkpoint-driven
// resume at phase boundaries.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/extract"
	"github.com/dependable-call-exchange/skypeetl/handlers"
	"github.com/dependable-call-exchange/skypeetl/observer"
	"github.com/dependable-call-exchange/skypeetl/store/postgres"
	"github.com/dependable-call-exchange/skypeetl/transform"
)

// Loader is the Load-phase contract the Orchestrator drives; *postgres.Loader
// satisfies it. Declared as an interface here (rather than imported
// concretely) so tests can exercise extract/transform/resume logic with a
// fake that never touches a live database.
type Loader interface {
	Load(ctx context.Context, source skypeetl.Export, data *skypeetl.TransformedExport) (int64, postgres.InsertCounts, error)
}

// Orchestrator runs one pipeline task end to end. It holds no state of its
// own beyond its collaborators: all run state lives on the shared
// *skypeetl.Context so a resumed run can be rebuilt from a checkpoint.
type Orchestrator struct {
	runCtx      *skypeetl.Context
	sourcePath  string
	extractor   *extract.Extractor
	transformer *transform.Transformer
	loader      Loader
	instruments *observer.Instruments
}

// New wires an Orchestrator for one run. sourcePath is the export archive
// or JSON file the Extractor reads; factory supplies the message handler
// registry the Transformer dispatches through.
func New(runCtx *skypeetl.Context, sourcePath string, loader Loader, factory *handlers.Factory) *Orchestrator {
	return &Orchestrator{
		runCtx:      runCtx,
		sourcePath:  sourcePath,
		extractor:   extract.New(runCtx),
		transformer: transform.New(runCtx, factory),
		loader:      loader,
	}
}

// WithInstruments attaches an OTEL Instruments bundle the Orchestrator
// records phase-duration, throughput, and batch-retry metrics against.
// Optional: a nil or never-set bundle means Run emits no metrics.
func (o *Orchestrator) WithInstruments(inst *observer.Instruments) *Orchestrator {
	o.instruments = inst
	return o
}

// PhaseSummary is one phase's entry in the final run Summary.
type PhaseSummary struct {
	Status  skypeetl.PhaseStatus     `json:"status"`
	Metrics map[string]any           `json:"metrics,omitempty"`
	Errors  []*skypeetl.PipelineError `json:"errors,omitempty"`
}

// Summary is the Orchestrator's result, written by callers to
// etl_summary_<task_id>.json.
type Summary struct {
	TaskID                string                  `json:"task_id"`
	Status                string                  `json:"status"`
	ExportID              int64                   `json:"export_id,omitempty"`
	ConversationCount     int                     `json:"conversation_count"`
	MessageCount          int                     `json:"message_count"`
	Phases                map[string]PhaseSummary `json:"phases"`
	ResumedFromCheckpoint bool                    `json:"resumed_from_checkpoint,omitempty"`
}

// Run executes extract -> transform -> load in order. When resume is true
// it first loads any existing checkpoint for the Context's TaskID and
// restores phase statuses from it; phases already marked completed are
// skipped and their artifacts are loaded from the sidecar files instead of
// being recomputed. Any phase failure aborts the run and returns the error
// that caused it, alongside the partial Summary.
func (o *Orchestrator) Run(ctx context.Context, resume bool) (*Summary, error) {
	resumed := false
	if resume {
		cp, err := o.runCtx.Checkpoints.Load(o.runCtx.TaskID)
		switch {
		case err == nil:
			o.runCtx.ApplyCheckpoint(cp)
			resumed = true
		case errors.Is(err, os.ErrNotExist):
			// No checkpoint yet: start fresh.
		default:
			return nil, fmt.Errorf("pipeline: load checkpoint: %w", err)
		}
	}

	var raw *skypeetl.RawExport
	var transformed *skypeetl.TransformedExport

	if o.runCtx.Phases.Status("extract") == skypeetl.PhaseCompleted {
		var err error
		raw, err = o.loadRawArtifact()
		if err != nil {
			return o.summary(resumed), fmt.Errorf("pipeline: reload extract artifact: %w", err)
		}
	} else {
		var err error
		raw, err = o.runExtract(ctx)
		if err != nil {
			return o.summary(resumed), err
		}
	}

	if o.runCtx.Phases.Status("transform") == skypeetl.PhaseCompleted {
		var err error
		transformed, err = o.loadTransformedArtifact()
		if err != nil {
			return o.summary(resumed), fmt.Errorf("pipeline: reload transform artifact: %w", err)
		}
	} else {
		var err error
		transformed, err = o.runTransform(ctx, raw)
		if err != nil {
			return o.summary(resumed), err
		}
	}

	if o.runCtx.Phases.Status("load") != skypeetl.PhaseCompleted {
		if err := o.runLoad(ctx, transformed); err != nil {
			return o.summary(resumed), err
		}
	}

	return o.summary(resumed), nil
}

func (o *Orchestrator) runExtract(ctx context.Context) (*skypeetl.RawExport, error) {
	started := time.Now()
	o.runCtx.Phases.StartPhase("extract", 0, 0)
	raw, err := o.extractor.Extract(o.sourcePath)
	if err != nil {
		return nil, o.runCtx.RecordError("extract", skypeetl.KindInput, "extract failed", nil, true, err)
	}
	o.runCtx.SetUserMetadata(raw.UserID, raw.UserDisplayName, raw.ExportDate)

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, o.runCtx.RecordError("extract", skypeetl.KindStructural, "marshal raw artifact failed", nil, true, err)
	}
	if err := o.runCtx.Checkpoints.SaveRawData(o.runCtx.TaskID, data); err != nil {
		return nil, o.runCtx.RecordError("extract", skypeetl.KindResource, "save raw artifact failed", nil, true, err)
	}

	totalMessages := 0
	for _, c := range raw.Conversations {
		totalMessages += len(c.MessageList)
	}
	o.runCtx.Phases.UpdateMetric("extract", "conversation_count", len(raw.Conversations))
	o.runCtx.Phases.UpdateMetric("extract", "message_count", totalMessages)
	o.runCtx.Phases.EndPhase("extract", skypeetl.PhaseCompleted)
	o.recordPhaseDuration(ctx, "extract", started)

	if err := o.saveCheckpoint(); err != nil {
		return nil, err
	}
	return raw, nil
}

func (o *Orchestrator) runTransform(ctx context.Context, raw *skypeetl.RawExport) (*skypeetl.TransformedExport, error) {
	started := time.Now()
	o.runCtx.Phases.StartPhase("transform", len(raw.Conversations), 0)
	transformed, err := o.transformer.Transform(ctx, raw)
	if err != nil {
		return nil, o.runCtx.RecordError("transform", skypeetl.KindContent, "transform failed", nil, true, err)
	}

	data, err := json.Marshal(transformed)
	if err != nil {
		return nil, o.runCtx.RecordError("transform", skypeetl.KindStructural, "marshal transformed artifact failed", nil, true, err)
	}
	if err := o.runCtx.Checkpoints.SaveTransformedData(o.runCtx.TaskID, data); err != nil {
		return nil, o.runCtx.RecordError("transform", skypeetl.KindResource, "save transformed artifact failed", nil, true, err)
	}

	o.runCtx.Phases.UpdateMetric("transform", "conversation_count", transformed.Metadata.ConversationCount)
	o.runCtx.Phases.UpdateMetric("transform", "message_count", transformed.Metadata.MessageCount)
	o.runCtx.Phases.EndPhase("transform", skypeetl.PhaseCompleted)
	o.recordPhaseDuration(ctx, "transform", started)
	if o.instruments != nil {
		o.instruments.ConversationsProcessed.Add(ctx, int64(transformed.Metadata.ConversationCount))
		o.instruments.MessagesTransformed.Add(ctx, int64(transformed.Metadata.MessageCount))
	}

	if err := o.saveCheckpoint(); err != nil {
		return nil, err
	}
	return transformed, nil
}

func (o *Orchestrator) runLoad(ctx context.Context, transformed *skypeetl.TransformedExport) error {
	started := time.Now()
	o.runCtx.Phases.StartPhase("load", transformed.Metadata.ConversationCount, transformed.Metadata.MessageCount)

	userID, userDisplayName, exportDate := o.runCtx.UserMetadata()
	source := skypeetl.Export{
		TaskID:          o.runCtx.TaskID,
		UserID:          userID,
		UserDisplayName: userDisplayName,
		ExportDate:      exportDate,
		FileSource:      o.sourcePath,
		FileSize:        fileSizeOrZero(o.sourcePath),
		CreatedAt:       skypeetl.NowUnix(),
	}

	exportID, counts, err := o.loader.Load(ctx, source, transformed)
	if err != nil {
		return err
	}
	o.runCtx.SetExportID(exportID)

	o.runCtx.Phases.UpdateMetric("load", "users_inserted", counts.Users)
	o.runCtx.Phases.UpdateMetric("load", "conversations_inserted", counts.Conversations)
	o.runCtx.Phases.UpdateMetric("load", "messages_inserted", counts.Messages)
	o.runCtx.Phases.UpdateMetric("load", "attachments_inserted", counts.Attachments)
	o.runCtx.Phases.UpdateMetric("load", "export_id", exportID)
	o.runCtx.Phases.EndPhase("load", skypeetl.PhaseCompleted)
	o.recordPhaseDuration(ctx, "load", started)
	if o.instruments != nil {
		o.instruments.AttachmentsLoaded.Add(ctx, int64(counts.Attachments))
		o.instruments.BatchRetries.Add(ctx, int64(counts.BatchRetries))
	}

	return o.saveCheckpoint()
}

// recordPhaseDuration emits the phase's wall-clock duration and a memory
// snapshot to Instruments, when one is attached. MemoryMonitor.Poll is
// cheap (a runtime.ReadMemStats call) so this doubles as the run's memory
// pressure sample point at every phase boundary.
func (o *Orchestrator) recordPhaseDuration(ctx context.Context, phase string, started time.Time) {
	if o.instruments == nil {
		return
	}
	elapsedMS := float64(time.Since(started)) / float64(time.Millisecond)
	o.instruments.PhaseDuration.Record(ctx, elapsedMS, metric.WithAttributes(attribute.String("phase", phase)))

	snap := o.runCtx.Memory.Poll()
	o.instruments.MemorySnapshots.Add(ctx, 1)
	o.instruments.MemoryUsageMB.Record(ctx, float64(snap.AllocBytes)/(1024*1024))
}

func (o *Orchestrator) saveCheckpoint() error {
	cp := o.runCtx.ToCheckpoint()
	cp.RawDataPath = o.runCtx.Checkpoints.RawDataPath(o.runCtx.TaskID)
	cp.TransformedDataPath = o.runCtx.Checkpoints.TransformedDataPath(o.runCtx.TaskID)
	if err := o.runCtx.Checkpoints.Save(cp); err != nil {
		return fmt.Errorf("pipeline: save checkpoint: %w", err)
	}
	return nil
}

func (o *Orchestrator) loadRawArtifact() (*skypeetl.RawExport, error) {
	data, err := o.runCtx.Checkpoints.LoadRawData(o.runCtx.TaskID)
	if err != nil {
		return nil, err
	}
	var raw skypeetl.RawExport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func (o *Orchestrator) loadTransformedArtifact() (*skypeetl.TransformedExport, error) {
	data, err := o.runCtx.Checkpoints.LoadTransformedData(o.runCtx.TaskID)
	if err != nil {
		return nil, err
	}
	var transformed skypeetl.TransformedExport
	if err := json.Unmarshal(data, &transformed); err != nil {
		return nil, err
	}
	return &transformed, nil
}

func (o *Orchestrator) summary(resumed bool) *Summary {
	status := "completed"
	phases := make(map[string]PhaseSummary, len(skypeetl.PhaseNames))
	for _, name := range skypeetl.PhaseNames {
		snap := o.runCtx.Phases.Snapshot(name)
		if snap.Status == skypeetl.PhaseFailed {
			status = "failed"
		} else if snap.Status != skypeetl.PhaseCompleted && status != "failed" {
			status = "incomplete"
		}
		phases[name] = PhaseSummary{
			Status:  snap.Status,
			Metrics: snap.Metrics,
			Errors:  errorsForPhase(o.runCtx.Errors.Errors(), name),
		}
	}

	return &Summary{
		TaskID:                o.runCtx.TaskID,
		Status:                status,
		ExportID:              o.runCtx.GetExportID(),
		ConversationCount:     intMetric(phases["transform"].Metrics, "conversation_count"),
		MessageCount:          intMetric(phases["transform"].Metrics, "message_count"),
		Phases:                phases,
		ResumedFromCheckpoint: resumed,
	}
}

func errorsForPhase(all []*skypeetl.PipelineError, phase string) []*skypeetl.PipelineError {
	var out []*skypeetl.PipelineError
	for _, e := range all {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}

func intMetric(metrics map[string]any, key string) int {
	v, ok := metrics[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func fileSizeOrZero(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
