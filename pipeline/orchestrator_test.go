package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/handlers"
	"github.com/dependable-call-exchange/skypeetl/store/postgres"
)

const sampleDoc = `{
  "userId": "8:alice",
  "exportDate": "2024-01-01T00:00:00Z",
  "conversations": [
    {
      "id": "19:abc@thread.skype",
      "displayName": "Team chat",
      "type": "Group",
      "MessageList": [
        {"id": "1", "originalarrivaltime": "2024-01-01T10:00:00Z", "from": "8:alice", "messagetype": "Text", "content": "hi", "edited": false}
      ]
    }
  ]
}`

// fakeLoader stands in for *postgres.Loader in tests that don't need a live
// database. It mirrors the real Loader's contract of recording its own
// fatal errors against the run Context before returning them.
type fakeLoader struct {
	runCtx   *skypeetl.Context
	calls    int
	exportID int64
	failWith error
}

func (f *fakeLoader) Load(ctx context.Context, source skypeetl.Export, data *skypeetl.TransformedExport) (int64, postgres.InsertCounts, error) {
	f.calls++
	if f.failWith != nil {
		return 0, postgres.InsertCounts{}, f.runCtx.RecordError("load", skypeetl.KindDatabase, "boom", nil, true, f.failWith)
	}
	return f.exportID, postgres.InsertCounts{Users: 1, Conversations: 1, Messages: len(data.Conversations["19:abc@thread.skype"].Messages)}, nil
}

// testRig bundles an Orchestrator with the output dir and Context it was
// built from, so a test can rebuild a second Orchestrator against the same
// Context for a resumed run.
type testRig struct {
	runCtx     *skypeetl.Context
	outputDir  string
	sourcePath string
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "export.json")
	if err := os.WriteFile(sourcePath, []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	runCtx := skypeetl.NewContextWithTaskID(skypeetl.Config{OutputDir: dir, ChunkSize: 100, MaxWorkers: 2}, "task-1")
	return &testRig{runCtx: runCtx, outputDir: dir, sourcePath: sourcePath}
}

func (r *testRig) orchestrator(loader Loader) *Orchestrator {
	return New(r.runCtx, r.sourcePath, loader, handlers.NewFactory())
}

func TestOrchestratorRunsAllPhasesInOrder(t *testing.T) {
	rig := newTestRig(t)
	fl := &fakeLoader{runCtx: rig.runCtx, exportID: 42}
	o := rig.orchestrator(fl)

	summary, err := o.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Status != "completed" {
		t.Fatalf("expected completed status, got %q", summary.Status)
	}
	if fl.calls != 1 {
		t.Fatalf("expected loader called once, got %d", fl.calls)
	}
	for _, name := range []string{"extract", "transform", "load"} {
		if rig.runCtx.Phases.Status(name) != skypeetl.PhaseCompleted {
			t.Fatalf("phase %s not completed", name)
		}
	}
	if summary.ConversationCount != 1 {
		t.Fatalf("expected 1 conversation, got %d", summary.ConversationCount)
	}
	if summary.MessageCount != 1 {
		t.Fatalf("expected 1 message, got %d", summary.MessageCount)
	}
	if summary.ExportID != 42 {
		t.Fatalf("expected export_id 42, got %d", summary.ExportID)
	}
}

func TestOrchestratorResumeSkipsCompletedPhases(t *testing.T) {
	rig := newTestRig(t)
	fl := &fakeLoader{runCtx: rig.runCtx, exportID: 7}
	o := rig.orchestrator(fl)

	if _, err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if fl.calls != 1 {
		t.Fatalf("expected 1 load call after first run, got %d", fl.calls)
	}

	fl2 := &fakeLoader{runCtx: rig.runCtx, exportID: 7}
	o2 := rig.orchestrator(fl2)
	summary, err := o2.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if !summary.ResumedFromCheckpoint {
		t.Fatalf("expected resumed_from_checkpoint true")
	}
	if fl2.calls != 0 {
		t.Fatalf("expected load phase skipped on resume, got %d calls", fl2.calls)
	}
	if summary.Status != "completed" {
		t.Fatalf("expected completed status, got %q", summary.Status)
	}
}

func TestOrchestratorAbortsOnLoadFailure(t *testing.T) {
	rig := newTestRig(t)
	fl := &fakeLoader{runCtx: rig.runCtx, failWith: os.ErrClosed}
	o := rig.orchestrator(fl)

	_, err := o.Run(context.Background(), false)
	if err == nil {
		t.Fatalf("expected load failure to abort the run")
	}
	if rig.runCtx.Phases.Status("load") != skypeetl.PhaseFailed {
		t.Fatalf("expected load phase marked failed")
	}
	if rig.runCtx.Phases.Status("transform") != skypeetl.PhaseCompleted {
		t.Fatalf("expected transform to have completed before load failed")
	}
}

func TestOrchestratorAbortsOnExtractFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.sourcePath = filepath.Join(rig.outputDir, "does-not-exist.json")
	fl := &fakeLoader{runCtx: rig.runCtx}
	o := rig.orchestrator(fl)

	_, err := o.Run(context.Background(), false)
	if err == nil {
		t.Fatalf("expected extract failure to abort the run")
	}
	if rig.runCtx.Phases.Status("extract") != skypeetl.PhaseFailed {
		t.Fatalf("expected extract phase marked failed")
	}
	if rig.runCtx.Phases.Status("transform") != skypeetl.PhasePending {
		t.Fatalf("expected transform never to have started, got %s", rig.runCtx.Phases.Status("transform"))
	}
	if fl.calls != 0 {
		t.Fatalf("expected loader never called, got %d calls", fl.calls)
	}
}

func TestOrchestratorAbortsOnMalformedExport(t *testing.T) {
	rig := newTestRig(t)
	badDoc := `{"userId": "8:alice", "exportDate": "2024-01-01T00:00:00Z", "conversations": "not-an-array"}`
	if err := os.WriteFile(rig.sourcePath, []byte(badDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	fl := &fakeLoader{runCtx: rig.runCtx}
	o := rig.orchestrator(fl)

	_, err := o.Run(context.Background(), false)
	if err == nil {
		t.Fatalf("expected malformed export to abort the run")
	}
	if rig.runCtx.Phases.Status("load") == skypeetl.PhaseCompleted {
		t.Fatalf("expected load never to have completed")
	}
	if fl.calls != 0 {
		t.Fatalf("expected loader never called, got %d calls", fl.calls)
	}
}
