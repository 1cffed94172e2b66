package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"docsign/internal/database"
)

type migrationStep struct {
	Name string
	SQL  string
}

var sqliteSteps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id         INTEGER  PRIMARY KEY AUTOINCREMENT,
  filename   TEXT     NOT NULL,
  path       TEXT     NOT NULL,
  category   TEXT     NOT NULL CHECK (category <> ''),
  created_at DATETIME NOT NULL,
  signed     BOOLEAN  NOT NULL DEFAULT 0
);`,
	},
	{
		Name: "create_index_documents_category",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_category ON documents (category, created_at);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
	{
		Name: "create_index_documents_filename",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents (filename);`,
	},
}

// IDENTITY columns are never handed out twice, matching SQLite AUTOINCREMENT.
var postgresSteps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id         BIGINT      GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
  filename   TEXT        NOT NULL,
  path       TEXT        NOT NULL,
  category   TEXT        NOT NULL CHECK (category <> ''),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  signed     BOOLEAN     NOT NULL DEFAULT false
);`,
	},
	{
		Name: "create_index_documents_category",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_category ON documents (category, created_at);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
	{
		Name: "create_index_documents_filename",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents (filename);`,
	},
}

func stepsFor(d database.Dialect) ([]migrationStep, string, error) {
	switch d {
	case database.DialectSQLite:
		return sqliteSteps, `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'documents')`, nil
	case database.DialectPostgres:
		return postgresSteps, `SELECT to_regclass('public.documents') IS NOT NULL`, nil
	default:
		return nil, "", fmt.Errorf("unsupported dialect %q", d)
	}
}

// EnsureMigrated creates the documents table and its indexes when the table is missing.
// Every step is IF NOT EXISTS, so running it on each process start is safe.
func EnsureMigrated(ctx context.Context, db *sql.DB, dialect database.Dialect, log logrus.FieldLogger) error {
	start := time.Now()
	log = log.WithFields(logrus.Fields{"component": "database", "dialect": string(dialect)})

	steps, sentinel, err := stepsFor(dialect)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"event": "db_migration_check", "status": "starting"}).Info("checking schema")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinel).Scan(&exists); err != nil {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_failed",
			"status":      "error",
			"duration_ms": time.Since(start).Milliseconds(),
		}).WithError(err).Error("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_skip",
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("schema already exists, skipping migration")
		return nil
	}

	log.WithFields(logrus.Fields{"event": "db_migration_start", "status": "in_progress"}).Info("migrating")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithFields(logrus.Fields{
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).WithError(err).Error("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.WithFields(logrus.Fields{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Debug("migration step applied")
	}

	log.WithFields(logrus.Fields{
		"event":       "db_migration_success",
		"status":      "success",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("schema migrated")

	return nil
}
