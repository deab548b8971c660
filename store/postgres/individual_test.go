package postgres

import (
	"strings"
	"testing"
	"time"
)

func TestBuildUpsertStatementPositionalPlaceholders(t *testing.T) {
	stmt := buildUpsertStatement(messageTable)
	if !strings.HasPrefix(stmt, "INSERT INTO messages (") {
		t.Fatalf("unexpected statement prefix: %s", stmt)
	}
	if !strings.Contains(stmt, "$11") {
		t.Fatalf("expected 11 positional placeholders for messages columns, got: %s", stmt)
	}
	if !strings.Contains(stmt, "ON CONFLICT (id) DO UPDATE SET") {
		t.Fatalf("expected upsert clause, got: %s", stmt)
	}
}

func TestBuildUpsertStatementNoConflictKeyOmitsClause(t *testing.T) {
	plain := tableSpec{name: "plain", columns: []string{"a", "b"}}
	stmt := buildUpsertStatement(plain)
	if strings.Contains(stmt, "ON CONFLICT") {
		t.Fatalf("expected no conflict clause when table has no conflict key, got: %s", stmt)
	}
}

func TestNewIndividualStrategyDefaults(t *testing.T) {
	s := NewIndividualStrategy(0, 0)
	if s.MaxRetryAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", s.MaxRetryAttempts)
	}
	if s.RetryBaseDelay != 100*time.Millisecond {
		t.Fatalf("expected default base delay 100ms, got %v", s.RetryBaseDelay)
	}
}
