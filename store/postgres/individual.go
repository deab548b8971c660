package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// IndividualStrategy inserts one row per statement via the same
// TransactionManager.WithRetry helper the bulk strategy uses, used for
// small inputs, debugging, or as the fallback once bulk insertion has
// repeatedly failed.
type IndividualStrategy struct {
	MaxRetryAttempts int
	RetryBaseDelay   time.Duration
}

// NewIndividualStrategy creates an IndividualStrategy with the given retry
// budget; callers pass zero values to accept the defaults (3 attempts,
// 100ms base delay).
func NewIndividualStrategy(maxRetryAttempts int, retryBaseDelay time.Duration) *IndividualStrategy {
	if maxRetryAttempts <= 0 {
		maxRetryAttempts = 3
	}
	if retryBaseDelay <= 0 {
		retryBaseDelay = 100 * time.Millisecond
	}
	return &IndividualStrategy{MaxRetryAttempts: maxRetryAttempts, RetryBaseDelay: retryBaseDelay}
}

func (s *IndividualStrategy) Insert(ctx context.Context, txm *TransactionManager, exportID int64, data *skypeetl.TransformedExport) (InsertCounts, error) {
	var counts InsertCounts

	userRows, err := userRows(data)
	if err != nil {
		return counts, err
	}
	if err := s.insertRows(ctx, txm, userTable, userRows); err != nil {
		return counts, err
	}
	counts.Users = len(userRows.rows)

	convRows, participantRows, err := conversationRows(exportID, data)
	if err != nil {
		return counts, err
	}
	if err := s.insertRows(ctx, txm, conversationTable, convRows); err != nil {
		return counts, err
	}
	counts.Conversations = len(convRows.rows)
	if err := s.insertRows(ctx, txm, participantTable, participantRows); err != nil {
		return counts, err
	}

	msgRows, attachRows, err := messageRows(data)
	if err != nil {
		return counts, err
	}
	if err := s.insertRows(ctx, txm, messageTable, msgRows); err != nil {
		return counts, err
	}
	counts.Messages = len(msgRows.rows)
	if err := s.insertRows(ctx, txm, attachmentTable, attachRows); err != nil {
		return counts, err
	}
	counts.Attachments = len(attachRows.rows)

	return counts, nil
}

func (s *IndividualStrategy) insertRows(ctx context.Context, txm *TransactionManager, table tableSpec, data tableRows) error {
	stmt := buildUpsertStatement(table)
	for _, row := range data.rows {
		row := row
		err := txm.WithRetry(ctx, "insert_"+table.name, s.MaxRetryAttempts, s.RetryBaseDelay, func() error {
			_, err := txm.Tx().Exec(ctx, stmt, row...)
			return err
		})
		if err != nil {
			return fmt.Errorf("postgres: individual insert %s: %w", table.name, err)
		}
	}
	return nil
}

// buildUpsertStatement renders a parameterized INSERT ... ON CONFLICT for
// table, using $1..$N positional placeholders in column order.
func buildUpsertStatement(table tableSpec) string {
	cols := strings.Join(table.columns, ", ")
	placeholders := make([]string, len(table.columns))
	for i := range table.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var conflictClause string
	if len(table.conflictKey) > 0 {
		updateAssignments := make([]string, 0, len(table.columns))
		for _, col := range table.columns {
			if contains(table.conflictKey, col) {
				continue
			}
			updateAssignments = append(updateAssignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
		if len(updateAssignments) == 0 {
			conflictClause = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(table.conflictKey, ", "))
		} else {
			conflictClause = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(table.conflictKey, ", "), strings.Join(updateAssignments, ", "))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)%s", table.name, cols, strings.Join(placeholders, ", "), conflictClause)
}
