package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// Adaptive batch bounds, per the spec's bulk insertion contract.
const (
	minBatchSize = 100
	maxBatchSize = 5000
)

// BulkStrategy inserts rows via pgx.CopyFrom, batched per table with
// adaptive sizing: a successful batch grows the next batch size by 1.5x
// (capped at maxBatchSize); a failed batch shrinks it by 0.5x (floored at
// minBatchSize) and retries the same rows at the smaller size, surfacing
// the error only once batch size is already at the floor.
//
// CopyFrom itself has no upsert semantics, so each batch is copied into a
// same-transaction temp table first, then merged into the real table with
// INSERT ... ON CONFLICT — giving bulk loading's throughput without losing
// the natural-key idempotency the spec requires for Conversation/Message.
type BulkStrategy struct {
	InitialBatchSize int
}

// NewBulkStrategy creates a BulkStrategy starting at the given batch size
// (the spec's default is 1000; callers pass Config.BatchSize).
func NewBulkStrategy(initialBatchSize int) *BulkStrategy {
	if initialBatchSize <= 0 {
		initialBatchSize = 1000
	}
	return &BulkStrategy{InitialBatchSize: initialBatchSize}
}

func (b *BulkStrategy) Insert(ctx context.Context, txm *TransactionManager, exportID int64, data *skypeetl.TransformedExport) (InsertCounts, error) {
	var counts InsertCounts

	userRows, err := userRows(data)
	if err != nil {
		return counts, err
	}
	retries, err := b.copyTable(ctx, txm, userTable, userRows)
	if err != nil {
		return counts, err
	}
	counts.Users = len(userRows.rows)
	counts.BatchRetries += retries

	convRows, participantRows, err := conversationRows(exportID, data)
	if err != nil {
		return counts, err
	}
	retries, err = b.copyTable(ctx, txm, conversationTable, convRows)
	if err != nil {
		return counts, err
	}
	counts.Conversations = len(convRows.rows)
	counts.BatchRetries += retries
	retries, err = b.copyTable(ctx, txm, participantTable, participantRows)
	if err != nil {
		return counts, err
	}
	counts.BatchRetries += retries

	msgRows, attachRows, err := messageRows(data)
	if err != nil {
		return counts, err
	}
	retries, err = b.copyTable(ctx, txm, messageTable, msgRows)
	if err != nil {
		return counts, err
	}
	counts.Messages = len(msgRows.rows)
	counts.BatchRetries += retries
	retries, err = b.copyTable(ctx, txm, attachmentTable, attachRows)
	if err != nil {
		return counts, err
	}
	counts.Attachments = len(attachRows.rows)
	counts.BatchRetries += retries

	return counts, nil
}

// copyTable copies data in adaptively-sized batches, returning the number
// of times a batch had to shrink and retry before succeeding.
func (b *BulkStrategy) copyTable(ctx context.Context, txm *TransactionManager, table tableSpec, data tableRows) (int, error) {
	batch := b.InitialBatchSize
	retries := 0
	i := 0
	for i < len(data.rows) {
		end := i + batch
		if end > len(data.rows) {
			end = len(data.rows)
		}
		chunk := data.rows[i:end]

		err := copyChunk(ctx, txm, table, chunk)
		if err == nil {
			i = end
			batch = growBatch(batch)
			continue
		}
		if batch <= minBatchSize {
			return retries, fmt.Errorf("postgres: bulk insert %s: %w", table.name, err)
		}
		batch = shrinkBatch(batch)
		retries++
	}
	return retries, nil
}

func growBatch(n int) int {
	grown := int(float64(n) * 1.5)
	if grown > maxBatchSize {
		return maxBatchSize
	}
	if grown <= n {
		return n + 1
	}
	return grown
}

func shrinkBatch(n int) int {
	shrunk := int(float64(n) * 0.5)
	if shrunk < minBatchSize {
		return minBatchSize
	}
	return shrunk
}

// copyChunk copies rows into a transaction-scoped temp table, then merges
// them into table via INSERT ... ON CONFLICT using table's conflict key.
// The temp table is created once per table name and reused (truncated)
// across every batch of the same load transaction, since multiple batches
// of the same table are common (e.g. 3500 messages at batch size 1000),
// and "CREATE TEMP TABLE" a second time in the same transaction would
// fail with "relation already exists".
//
// The copy+merge itself runs inside a savepoint: tx.Begin, called on an
// already-open pgx.Tx, issues SAVEPOINT rather than starting a new
// transaction. That means a copy or merge failure only rolls back to the
// savepoint instead of aborting the whole load transaction (Postgres
// error 25P02), so copyTable's shrink-and-retry of the same rows at a
// smaller batch size can still go on to commit.
func copyChunk(ctx context.Context, txm *TransactionManager, table tableSpec, rows [][]any) error {
	tx := txm.Tx()
	tmpName := "tmp_" + table.name + "_load"

	createTmp := fmt.Sprintf(`CREATE TEMP TABLE IF NOT EXISTS %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP`, tmpName, table.name)
	if _, err := tx.Exec(ctx, createTmp); err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}

	if _, err := sp.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, tmpName)); err != nil {
		sp.Rollback(ctx)
		return fmt.Errorf("truncate temp table: %w", err)
	}

	if _, err := sp.CopyFrom(ctx, pgx.Identifier{tmpName}, table.columns, pgx.CopyFromRows(rows)); err != nil {
		sp.Rollback(ctx)
		return fmt.Errorf("copy into temp table: %w", err)
	}

	merge := buildMergeStatement(tmpName, table)
	if _, err := sp.Exec(ctx, merge); err != nil {
		sp.Rollback(ctx)
		return fmt.Errorf("merge temp table: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func buildMergeStatement(tmpName string, table tableSpec) string {
	cols := strings.Join(table.columns, ", ")
	var conflictClause string
	if len(table.conflictKey) == 0 {
		conflictClause = ""
	} else {
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
	return fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM %s%s`, table.name, cols, cols, tmpName, conflictClause)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
