package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// TransactionManager wraps a single pgx.Tx in begin/commit/rollback and
// supplies WithRetry for the bounded-retry semantics Insertion Strategies
// need around individual statements.
type TransactionManager struct {
	tx     pgx.Tx
	logger *slog.Logger
}

// NewTransactionManager wraps an already-begun transaction.
func NewTransactionManager(tx pgx.Tx, logger *slog.Logger) *TransactionManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TransactionManager{tx: tx, logger: logger}
}

// Tx exposes the underlying transaction for strategies that need direct
// access (e.g. pgx.CopyFrom, which takes a pgx.Tx).
func (m *TransactionManager) Tx() pgx.Tx { return m.tx }

// Commit commits the wrapped transaction.
func (m *TransactionManager) Commit(ctx context.Context) error {
	if err := m.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Rollback rolls back the wrapped transaction. Errors are logged, not
// returned: a rollback failure must never mask the original error that
// triggered it.
func (m *TransactionManager) Rollback(ctx context.Context) {
	if err := m.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		m.logger.Warn("rollback failed", "error", err)
	}
}

// WithRetry runs fn up to maxAttempts times against this transaction's
// connection, retrying only transient Postgres errors with exponential
// backoff.
func (m *TransactionManager) WithRetry(ctx context.Context, name string, maxAttempts int, base time.Duration, fn func() error) error {
	_, err := retryCall(ctx, maxAttempts, base, name, m.logger, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
