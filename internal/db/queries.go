package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/j-veylop/creditbar/internal/logger"
)

// BalanceRecord is one stored balance reading.
type BalanceRecord struct {
	ID        string
	Amount    int64
	Timestamp time.Time
	Source    string
}

// UsageRecord is the consumption between two consecutive balance readings.
type UsageRecord struct {
	ID              string
	StartBalance    int64
	EndBalance      int64
	UsageAmount     int64
	DurationMinutes int64
	Timestamp       time.Time
}

// RatePerHour returns the record's consumption rate.
func (r UsageRecord) RatePerHour() float64 {
	if r.DurationMinutes <= 0 {
		return 0
	}
	return float64(r.UsageAmount) / float64(r.DurationMinutes) * 60
}

type rowScanner interface {
	Scan(dest ...any) error
}

// InsertBalance stores a reading. When it is lower than the previous reading
// a usage record covering the gap is stored in the same transaction.
func (db *DB) InsertBalance(ctx context.Context, amount int64, source string) (*BalanceRecord, error) {
	if source == "" {
		source = SourceScraper
	}
	record := &BalanceRecord{
		ID:        uuid.NewString(),
		Amount:    amount,
		Timestamp: db.now().UTC().Truncate(time.Millisecond),
		Source:    source,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	previous, err := scanBalance(tx.QueryRowContext(ctx,
		"SELECT id, amount, timestamp, source FROM balance_records ORDER BY timestamp DESC, rowid DESC LIMIT 1"))
	if err != nil {
		return nil, fmt.Errorf("failed to read previous balance: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO balance_records (id, amount, timestamp, source) VALUES (?, ?, ?, ?)",
		record.ID, record.Amount, record.Timestamp.Format(timeLayout), record.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to insert balance record: %w", err)
	}

	if previous != nil && previous.Amount > amount {
		minutes := int64(record.Timestamp.Sub(previous.Timestamp) / time.Minute)
		if minutes < minUsageDurationMinutes {
			minutes = minUsageDurationMinutes
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO usage_records (id, start_balance, end_balance, usage_amount, duration_minutes, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), previous.Amount, amount, previous.Amount-amount, minutes,
			record.Timestamp.Format(timeLayout))
		if err != nil {
			return nil, fmt.Errorf("failed to insert usage record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit balance record: %w", err)
	}
	return record, nil
}

// LatestBalance returns the newest reading, or nil when none is stored.
func (db *DB) LatestBalance(ctx context.Context) (*BalanceRecord, error) {
	record, err := scanBalance(db.QueryRowContext(ctx,
		"SELECT id, amount, timestamp, source FROM balance_records ORDER BY timestamp DESC, rowid DESC LIMIT 1"))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest balance: %w", err)
	}
	return record, nil
}

// BalanceHistory returns readings from the last hours, oldest first.
func (db *DB) BalanceHistory(ctx context.Context, hours int) ([]BalanceRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, amount, timestamp, source FROM balance_records WHERE timestamp >= ? ORDER BY timestamp ASC, rowid ASC",
		db.since(hours))
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer closeRows(rows)

	records := []BalanceRecord{}
	for rows.Next() {
		record, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// UsageHistory returns usage records from the last hours, oldest first.
func (db *DB) UsageHistory(ctx context.Context, hours int) ([]UsageRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, start_balance, end_balance, usage_amount, duration_minutes, timestamp
		 FROM usage_records WHERE timestamp >= ? ORDER BY timestamp ASC, rowid ASC`,
		db.since(hours))
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}
	defer closeRows(rows)

	records := []UsageRecord{}
	for rows.Next() {
		var r UsageRecord
		var ts string
		if err := rows.Scan(&r.ID, &r.StartBalance, &r.EndBalance, &r.UsageAmount, &r.DurationMinutes, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		if r.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Cleanup deletes records older than retentionDays and returns how many rows
// were removed.
func (db *DB) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := db.now().UTC().AddDate(0, 0, -retentionDays).Format(timeLayout)

	var removed int64
	for _, table := range []string{"balance_records", "usage_records"} {
		res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff)
		if err != nil {
			return removed, fmt.Errorf("failed to clean up %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}

func (db *DB) since(hours int) string {
	return db.now().UTC().Add(-time.Duration(hours) * time.Hour).Format(timeLayout)
}

func scanBalance(row rowScanner) (*BalanceRecord, error) {
	var r BalanceRecord
	var ts string
	err := row.Scan(&r.ID, &r.Amount, &ts, &r.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Timestamp, err = parseTimestamp(ts); err != nil {
		return nil, err
	}
	return &r, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.Error("failed to close rows", "error", err)
	}
}
