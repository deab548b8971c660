package postgres

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// transientSQLStates are Postgres SQLSTATE class/code prefixes treated as
// retryable: 08* is the connection-exception class, 40001 is
// serialization_failure, 40P01 is deadlock_detected.
var transientSQLStates = []string{"08", "40001", "40P01"}

// isTransient reports whether err is a PgError whose SQLSTATE marks it as a
// transient condition worth retrying, adapted from the teacher's HTTP
// status-based isTransient to Postgres SQLSTATE classification.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, prefix := range transientSQLStates {
		if len(pgErr.Code) >= len(prefix) && pgErr.Code[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// retryBackoff returns the delay for retry i (0-indexed): base * 2^i, plus
// up to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}

// retryCall runs fn up to maxAttempts times, retrying only on transient
// Postgres errors with exponential backoff. A non-transient error returns
// immediately without consuming further attempts.
func retryCall[T any](ctx context.Context, maxAttempts int, base time.Duration, name string, logger *slog.Logger, fn func() (T, error)) (T, error) {
	var zero T
	var last error
	for i := 0; i < maxAttempts; i++ {
		result, err := fn()
		if err == nil || !isTransient(err) {
			return result, err
		}
		last = err
		if logger != nil {
			logger.Warn("retrying transient postgres error", "operation", name, "attempt", i+1, "max_attempts", maxAttempts, "error", err)
		}
		if i < maxAttempts-1 {
			delay := retryBackoff(base, i)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return zero, last
}
