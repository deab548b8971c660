package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jackc/pgx/v5"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// PhaseLoad is the phase name the Loader reports progress and errors
// against, matching skypeetl.PhaseNames.
const PhaseLoad = "load"

// Loader drives the Load phase: validate, acquire a connection, ensure the
// schema exists, run the whole write inside one transaction via the active
// InsertStrategy, and record the resulting export_id on the run Context.
type Loader struct {
	runCtx   *skypeetl.Context
	pool     *ConnectionPool
	schema   *SchemaManager
	strategy InsertStrategy
}

// NewLoader wires a Loader against pool, picking the InsertStrategy
// strategy (bulk or individual) the caller has already selected.
func NewLoader(runCtx *skypeetl.Context, pool *ConnectionPool, strategy InsertStrategy) *Loader {
	return &Loader{
		runCtx:   runCtx,
		pool:     pool,
		schema:   NewSchemaManager(pool),
		strategy: strategy,
	}
}

// Load runs the full Load phase sequence against data: validate, acquire,
// ensure schema, begin tx, insert archive, delegate to the InsertStrategy,
// commit, release, set Context.ExportID. Any failure rolls the transaction
// back, releases the connection, records a fatal load error, and returns it.
func (l *Loader) Load(ctx context.Context, source skypeetl.Export, data *skypeetl.TransformedExport) (int64, InsertCounts, error) {
	var counts InsertCounts

	if err := validateArchive(source); err != nil {
		return 0, counts, l.fail(skypeetl.KindValidation, "archive validation failed", err)
	}
	source.FileSource = normalizeFileSource(source.FileSource, l.runCtx.Logger)

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return 0, counts, l.fail(skypeetl.KindResource, "acquire connection failed", err)
	}
	defer l.pool.Release(conn)

	if err := l.schema.Ensure(ctx); err != nil {
		return 0, counts, l.fail(skypeetl.KindDatabase, "schema ensure failed", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, counts, l.fail(skypeetl.KindDatabase, "begin transaction failed", err)
	}
	txm := NewTransactionManager(tx, l.runCtx.Logger)

	exportID, err := insertArchive(ctx, tx, source)
	if err != nil {
		txm.Rollback(ctx)
		return 0, counts, l.fail(skypeetl.KindDatabase, "insert archive failed", err)
	}

	counts, err = l.strategy.Insert(ctx, txm, exportID, data)
	if err != nil {
		txm.Rollback(ctx)
		return 0, counts, l.fail(skypeetl.KindDatabase, "insert strategy failed", err)
	}

	if err := txm.Commit(ctx); err != nil {
		txm.Rollback(ctx)
		return 0, counts, l.fail(skypeetl.KindDatabase, "commit failed", err)
	}

	l.runCtx.SetExportID(exportID)
	return exportID, counts, nil
}

func (l *Loader) fail(kind skypeetl.ErrorKind, message string, cause error) error {
	return l.runCtx.RecordError(PhaseLoad, kind, message, nil, true, cause)
}

// validateArchive checks the fields the Loader cannot fabricate or
// normalize on the caller's behalf; file_source's .tar suffix is instead
// normalized by normalizeFileSource before the archive row is built.
func validateArchive(source skypeetl.Export) error {
	if source.TaskID == "" {
		return fmt.Errorf("postgres: task_id is required")
	}
	if source.FileSource == "" {
		return fmt.Errorf("postgres: file_source is required")
	}
	return nil
}

// normalizeFileSource appends .tar to source paths lacking it, satisfying
// the schema's file_source CHECK constraint, and logs a warning when it
// had to do so (e.g. a bare "export" source becomes "export.tar").
func normalizeFileSource(fileSource string, logger *slog.Logger) string {
	if strings.HasSuffix(fileSource, ".tar") {
		return fileSource
	}
	normalized := fileSource + ".tar"
	if logger != nil {
		logger.Warn("normalized file_source to satisfy .tar suffix requirement", "original", fileSource, "normalized", normalized)
	}
	return normalized
}

// insertArchive inserts the single Archive row for this run and returns the
// generated export_id.
func insertArchive(ctx context.Context, tx pgx.Tx, source skypeetl.Export) (int64, error) {
	props, err := marshalJSONB(stringMapToAny(source.Properties))
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal archive properties: %w", err)
	}

	const stmt = `
		INSERT INTO archives (task_id, user_id, user_display_name, export_date, file_source, file_size, properties)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING export_id`

	var exportID int64
	row := tx.QueryRow(ctx, stmt,
		source.TaskID, source.UserID, source.UserDisplayName,
		exportDateAsTime(source), source.FileSource, source.FileSize, props,
	)
	if err := row.Scan(&exportID); err != nil {
		return 0, fmt.Errorf("postgres: insert archive: %w", err)
	}
	return exportID, nil
}

func stringMapToAny(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// exportDateAsTime parses Export.ExportDate (the human-facing date string
// carried from the source document) with the same flexible parser the
// Transformer uses for message timestamps, falling back to CreatedAt when
// the source omitted or mangled it.
func exportDateAsTime(source skypeetl.Export) time.Time {
	if source.ExportDate != "" {
		if t, err := dateparse.ParseAny(source.ExportDate); err == nil {
			return t.UTC()
		}
	}
	return unixToTime(source.CreatedAt)
}
