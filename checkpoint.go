package skypeetl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CheckpointVersion is stamped on every checkpoint document written by this
// build, so a future incompatible layout change can refuse to load old files.
const CheckpointVersion = 1

// CheckpointPhase is the per-phase record stored in a checkpoint document.
type CheckpointPhase struct {
	Status  PhaseStatus    `json:"status"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// Checkpoint is the whitelisted, serializable subset of a run's Context.
// Large artifacts never live inline: RawDataPath and TransformedDataPath
// point at sidecar files under the same output directory.
type Checkpoint struct {
	CheckpointVersion  int                        `json:"checkpoint_version"`
	TaskID             string                     `json:"task_id"`
	UserID             string                     `json:"user_id,omitempty"`
	ExportID           int64                      `json:"export_id,omitempty"`
	Phases             map[string]CheckpointPhase `json:"phases"`
	RawDataPath        string                     `json:"raw_data_path,omitempty"`
	TransformedDataPath string                    `json:"transformed_data_path,omitempty"`
}

// CheckpointManager persists and restores Checkpoint documents by task_id
// under a configured output directory, per the fixed layout:
//
//	<output_dir>/<task_id>_raw_data.json
//	<output_dir>/<task_id>_transformed_data.json
//	<output_dir>/checkpoints/checkpoint_<task_id>.json
type CheckpointManager struct {
	outputDir string
}

// NewCheckpointManager creates a manager rooted at outputDir. The
// checkpoints/ subdirectory is created lazily on first Save.
func NewCheckpointManager(outputDir string) *CheckpointManager {
	return &CheckpointManager{outputDir: outputDir}
}

func (c *CheckpointManager) checkpointPath(taskID string) string {
	return filepath.Join(c.outputDir, "checkpoints", fmt.Sprintf("checkpoint_%s.json", taskID))
}

// RawDataPath returns the sidecar path for a task's raw extracted data.
func (c *CheckpointManager) RawDataPath(taskID string) string {
	return filepath.Join(c.outputDir, fmt.Sprintf("%s_raw_data.json", taskID))
}

// TransformedDataPath returns the sidecar path for a task's transformed data.
func (c *CheckpointManager) TransformedDataPath(taskID string) string {
	return filepath.Join(c.outputDir, fmt.Sprintf("%s_transformed_data.json", taskID))
}

// Save writes the checkpoint document, creating the checkpoints/
// subdirectory if needed. It stamps CheckpointVersion unconditionally.
func (c *CheckpointManager) Save(cp *Checkpoint) error {
	cp.CheckpointVersion = CheckpointVersion
	dir := filepath.Join(c.outputDir, "checkpoints")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	path := c.checkpointPath(cp.TaskID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads the checkpoint document for taskID. It returns
// os.ErrNotExist (wrapped) when no checkpoint exists for that task, which
// callers treat as "start fresh."
func (c *CheckpointManager) Load(taskID string) (*Checkpoint, error) {
	data, err := os.ReadFile(c.checkpointPath(taskID))
	if err != nil {
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal: %w", err)
	}
	if cp.CheckpointVersion != CheckpointVersion {
		return nil, fmt.Errorf("checkpoint: unsupported checkpoint_version %d (want %d)", cp.CheckpointVersion, CheckpointVersion)
	}
	return &cp, nil
}

// SaveRawData writes the raw extracted data artifact for taskID.
func (c *CheckpointManager) SaveRawData(taskID string, data []byte) error {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create output dir: %w", err)
	}
	return os.WriteFile(c.RawDataPath(taskID), data, 0o644)
}

// LoadRawData reads back a previously saved raw data artifact.
func (c *CheckpointManager) LoadRawData(taskID string) ([]byte, error) {
	return os.ReadFile(c.RawDataPath(taskID))
}

// SaveTransformedData writes the transformed data artifact for taskID.
func (c *CheckpointManager) SaveTransformedData(taskID string, data []byte) error {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create output dir: %w", err)
	}
	return os.WriteFile(c.TransformedDataPath(taskID), data, 0o644)
}

// LoadTransformedData reads back a previously saved transformed data artifact.
func (c *CheckpointManager) LoadTransformedData(taskID string) ([]byte, error) {
	return os.ReadFile(c.TransformedDataPath(taskID))
}
