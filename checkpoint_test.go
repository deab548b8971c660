package skypeetl

import (
	"os"
	"testing"
)

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cm := NewCheckpointManager(dir)

	cp := &Checkpoint{
		TaskID:   "task-123",
		UserID:   "8:alice",
		ExportID: 42,
		Phases: map[string]CheckpointPhase{
			"extract": {Status: PhaseCompleted, Metrics: map[string]any{"conversation_count": float64(10)}},
		},
	}
	if err := cm.Save(cp); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := cm.Load("task-123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.UserID != "8:alice" || loaded.ExportID != 42 {
		t.Fatalf("unexpected checkpoint content: %+v", loaded)
	}
	if loaded.CheckpointVersion != CheckpointVersion {
		t.Fatalf("expected version %d, got %d", CheckpointVersion, loaded.CheckpointVersion)
	}
	if loaded.Phases["extract"].Status != PhaseCompleted {
		t.Fatalf("expected extract phase completed, got %+v", loaded.Phases["extract"])
	}
}

func TestCheckpointLoadMissingReturnsNotExist(t *testing.T) {
	cm := NewCheckpointManager(t.TempDir())
	_, err := cm.Load("does-not-exist")
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestCheckpointSidecarArtifacts(t *testing.T) {
	dir := t.TempDir()
	cm := NewCheckpointManager(dir)

	raw := []byte(`{"userId":"8:alice"}`)
	if err := cm.SaveRawData("task-1", raw); err != nil {
		t.Fatalf("save raw: %v", err)
	}
	got, err := cm.LoadRawData("task-1")
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("raw data mismatch: %s", got)
	}
}
