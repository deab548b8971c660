package skypeetl

import (
	"time"

	"github.com/google/uuid"
)

// NewTaskID generates a globally unique, time-sortable UUIDv7 (RFC 9562)
// used as a pipeline run's task_id when the caller does not supply one.
func NewTaskID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns the current time as Unix seconds, used for deterministic
// ingest-time fallbacks when a message timestamp cannot be parsed.
func NowUnix() int64 {
	return time.Now().Unix()
}
