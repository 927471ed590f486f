package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Schedules, exceptions and schedule history",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS user_schedule (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				year INTEGER NOT NULL,
				weekdays TEXT NOT NULL,
				working_days INTEGER NOT NULL DEFAULT 0,
				non_working_days INTEGER NOT NULL DEFAULT 0,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (user_id, year)
			)`,
			`CREATE TABLE IF NOT EXISTS schedule_exceptions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				year INTEGER NOT NULL,
				from_date TEXT NOT NULL,
				to_date TEXT NOT NULL,
				is_day_on BOOLEAN NOT NULL,
				reason TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_schedule_exceptions_user_year ON schedule_exceptions(user_id, year)`,
			`CREATE TABLE IF NOT EXISTS user_schedule_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				year INTEGER NOT NULL,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				weekdays TEXT NOT NULL,
				working_days INTEGER NOT NULL,
				non_working_days INTEGER NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_schedule_history_user_year ON user_schedule_history(user_id, year, end_date)`,
		),
	},
	{
		Version:     2,
		Description: "Field definitions, goal values and tracker values",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS fields (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				field_name TEXT NOT NULL,
				label TEXT NOT NULL DEFAULT '',
				kind TEXT NOT NULL CHECK (kind IN ('goal', 'tracker')),
				position INTEGER NOT NULL DEFAULT 0,
				is_editable BOOLEAN NOT NULL DEFAULT 1,
				is_integer BOOLEAN NOT NULL DEFAULT 0,
				calculation TEXT,
				rounding_condition TEXT,
				UNIQUE (kind, field_name)
			)`,
			`CREATE INDEX idx_fields_kind_position ON fields(kind, position)`,
			`CREATE TABLE IF NOT EXISTS goals (
				user_id TEXT NOT NULL,
				year INTEGER NOT NULL,
				field_name TEXT NOT NULL,
				value REAL NOT NULL DEFAULT 0,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, year, field_name)
			)`,
			`CREATE TABLE IF NOT EXISTS tracker (
				user_id TEXT NOT NULL,
				field_name TEXT NOT NULL,
				date TEXT NOT NULL,
				value REAL NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, field_name, date)
			)`,
			`CREATE INDEX idx_tracker_user_date ON tracker(user_id, date)`,
		),
	},
	{
		Version:     3,
		Description: "Commission transactions",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				commission REAL NOT NULL,
				pending_date TEXT NOT NULL,
				closed_date TEXT,
				status TEXT NOT NULL CHECK (status IN ('PENDING', 'CLOSED', 'CANCEL')),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_transactions_user_pending ON transactions(user_id, pending_date)`,
		),
	},
	{
		Version:     4,
		Description: "Backup metadata",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS backup_metadata (
				id TEXT PRIMARY KEY,
				created_at DATETIME NOT NULL,
				description TEXT,
				file_size INTEGER,
				row_counts TEXT,
				schema_version INTEGER,
				is_auto BOOLEAN DEFAULT 0
			)`,
			`CREATE INDEX idx_backup_metadata_created_at ON backup_metadata(created_at)`,
		),
	},
}

func execAll(queries ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query '%s': %w", query, err)
			}
		}
		return nil
	}
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate runs all database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
