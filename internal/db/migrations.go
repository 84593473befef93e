package db

import (
	"context"
	"fmt"
)

// migrations are applied in order. The database's user_version records how
// many have run; append new steps, never edit old ones.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS balance_records (
		id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'scraper'
	);
	CREATE INDEX IF NOT EXISTS idx_balance_timestamp ON balance_records(timestamp);`,

	`CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		start_balance INTEGER NOT NULL,
		end_balance INTEGER NOT NULL,
		usage_amount INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);`,

	// Earlier releases wrote offset timestamps such as
	// "2024-05-01T10:00:00.123456+00:00". Range queries compare text, so
	// rewrite them in timeLayout.
	normalizeTimestamps,
}

const normalizeTimestamps = `
	UPDATE balance_records
	SET timestamp = strftime('%Y-%m-%dT%H:%M:%fZ', timestamp)
	WHERE timestamp NOT LIKE '%Z' AND strftime('%Y-%m-%dT%H:%M:%fZ', timestamp) IS NOT NULL;
	UPDATE usage_records
	SET timestamp = strftime('%Y-%m-%dT%H:%M:%fZ', timestamp)
	WHERE timestamp NOT LIKE '%Z' AND strftime('%Y-%m-%dT%H:%M:%fZ', timestamp) IS NOT NULL;`

// SchemaVersion returns the number of migrations applied.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (db *DB) migrate(ctx context.Context) error {
	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", v+1, err)
		}
	}
	return nil
}
