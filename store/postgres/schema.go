// Package postgres implements the Loader, Connection Pool, Schema Manager,
// and Insertion Strategies against a PostgreSQL-compatible database via
// pgx/pgxpool.
package postgres

import (
	"context"
	"fmt"
)

// SchemaManager runs idempotent DDL for the export schema. All statements
// use CREATE TABLE/INDEX IF NOT EXISTS so repeated runs across pipeline
// restarts never fail on an already-initialized database, and DDL always
// runs outside the Loader's load transaction.
type SchemaManager struct {
	pool *ConnectionPool
}

// NewSchemaManager creates a SchemaManager bound to pool.
func NewSchemaManager(pool *ConnectionPool) *SchemaManager {
	return &SchemaManager{pool: pool}
}

// ddlStatements is the flat, ordered list of idempotent schema statements.
// Order matters: each table's REFERENCES clauses name tables created by
// earlier statements. IF NOT EXISTS makes the list safe to run any number
// of times.
var ddlStatements = []string{
	`CREATE TABLE IF NOT EXISTS archives (
		export_id BIGSERIAL PRIMARY KEY,
		task_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_display_name TEXT NOT NULL DEFAULT '',
		export_date TIMESTAMP NOT NULL,
		file_source TEXT NOT NULL CHECK (file_source LIKE '%.tar'),
		file_size BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT now(),
		properties JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		is_self BOOLEAN NOT NULL DEFAULT FALSE,
		properties JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		export_id BIGINT NOT NULL REFERENCES archives(export_id),
		display_name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'unknown',
		first_message_time TIMESTAMP,
		last_message_time TIMESTAMP,
		message_count INTEGER NOT NULL DEFAULT 0,
		participant_count INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS participants (
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		is_self BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (conversation_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		sender_id TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL,
		timestamp_source TEXT NOT NULL DEFAULT 'parsed',
		message_type TEXT NOT NULL DEFAULT '',
		content_html TEXT NOT NULL DEFAULT '',
		content_text TEXT NOT NULL DEFAULT '',
		is_edited BOOLEAN NOT NULL DEFAULT FALSE,
		structured_data JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS attachments (
		message_id TEXT NOT NULL REFERENCES messages(id),
		type TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		size BIGINT NOT NULL DEFAULT 0,
		local_path TEXT,
		thumbnail_path TEXT,
		image_metadata JSONB,
		UNIQUE (message_id, name)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_from_id ON messages(sender_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_message_id ON attachments(message_id)`,
}

// Ensure runs every DDL statement against the pool, outside any caller
// transaction. Safe to call on every Loader run.
func (s *SchemaManager) Ensure(ctx context.Context) error {
	for _, stmt := range ddlStatements {
		if _, err := s.pool.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: schema: %w", err)
		}
	}
	return nil
}
