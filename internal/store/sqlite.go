package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// ReturnRecord is one daily performance observation: the period return and
// the portfolio value it was computed from.
type ReturnRecord struct {
	Date           time.Time
	Return         float64
	PortfolioValue float64
}

// SQLiteStore persists daily return records so the performance tracker can
// be re-seeded after a restart. Orders and positions are deliberately not
// persisted; they are rebuilt from gateway pushes.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_returns (
			date            TEXT PRIMARY KEY,
			return_value    REAL NOT NULL,
			portfolio_value REAL NOT NULL
		)`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReturn inserts or replaces the return record for its date. One record
// per trading day; a re-run on the same day overwrites.
func (s *SQLiteStore) SaveReturn(ctx context.Context, rec ReturnRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO daily_returns (date, return_value, portfolio_value) VALUES (?, ?, ?)`,
		rec.Date.UTC().Format("2006-01-02"), rec.Return, rec.PortfolioValue)
	if err != nil {
		return fmt.Errorf("saving return for %s: %w", rec.Date.Format("2006-01-02"), err)
	}
	return nil
}

// RecentReturns returns up to limit of the most recent return records in
// chronological order (oldest first), matching the tracker's ordering.
func (s *SQLiteStore) RecentReturns(ctx context.Context, limit int) ([]ReturnRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, return_value, portfolio_value FROM (
			SELECT date, return_value, portfolio_value
			FROM daily_returns ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying returns: %w", err)
	}
	defer rows.Close()

	var out []ReturnRecord
	for rows.Next() {
		var rec ReturnRecord
		var date string
		if err := rows.Scan(&date, &rec.Return, &rec.PortfolioValue); err != nil {
			return nil, fmt.Errorf("scanning return row: %w", err)
		}
		ts, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("parsing return date %q: %w", date, err)
		}
		rec.Date = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}
