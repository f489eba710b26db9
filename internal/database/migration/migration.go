package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_document_records",
		SQL: `CREATE TABLE IF NOT EXISTS document_records (
  id               TEXT        PRIMARY KEY,
  kind             TEXT        NOT NULL CHECK (kind IN ('original', 'transformed', 'attachment')),
  type_code        TEXT        NOT NULL DEFAULT '',
  subject          TEXT        NOT NULL DEFAULT '',
  status           TEXT        NOT NULL DEFAULT '',
  changed_date     TIMESTAMPTZ,
  next_change_date TIMESTAMPTZ,
  version          INTEGER     NOT NULL DEFAULT 1,
  resource         JSONB       NOT NULL,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_document_records_kind",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_records_kind ON document_records (kind);`,
	},
	{
		Name: "create_index_document_records_subject",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_records_subject ON document_records (subject);`,
	},
	{
		Name: "create_index_document_records_next_change_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_records_next_change_date ON document_records (status, next_change_date);`,
	},
	{
		Name: "create_table_invoice_payloads",
		SQL: `CREATE TABLE IF NOT EXISTS invoice_payloads (
  id           UUID        PRIMARY KEY,
  content_type TEXT        NOT NULL,
  raw          BYTEA       NOT NULL,
  invoice      JSONB,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// EnsureMigrated checks if the 'document_records' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Send()

	var exists bool
	query := "SELECT to_regclass('public.document_records') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().
			Str("event", "db_migration_failed").
			Str("status", "error").
			Err(err).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	return Run(ctx, db, log)
}

// Run executes every migration step unconditionally. Steps are idempotent.
func Run(ctx context.Context, db *sql.DB, log zerolog.Logger) error {
	start := time.Now()
	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Send()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Err(err).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Send()
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Send()
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Send()
	return nil
}
