// Package history persists rover status reports so observers can replay
// recent crowd decisions after connecting.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mfitzp/kropbot/internal/direction"
)

// Record is one persisted status report.
type Record struct {
	ID          int64                  `json:"id"`
	Timestamp   time.Time              `json:"ts"`
	Direction   direction.Code         `json:"direction"`
	Magnitude   float64                `json:"magnitude"`
	Controllers int                    `json:"n_controllers"`
	Counts      map[direction.Code]int `json:"total_counts"`
}

// Store implements report persistence using SQLite.
type Store struct {
	db *sql.DB
}

// Open creates a store at the given database path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		direction INTEGER NOT NULL,
		magnitude REAL NOT NULL,
		controllers INTEGER NOT NULL,
		counts JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_ts ON reports(ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Append persists one status report.
func (s *Store) Append(ctx context.Context, rec Record) error {
	counts, err := json.Marshal(rec.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (ts, direction, magnitude, controllers, counts)
		VALUES (?, ?, ?, ?, ?)
	`, ts.UTC().Format(time.RFC3339Nano), int(rec.Direction), rec.Magnitude, rec.Controllers, string(counts))
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

// Recent returns up to limit reports, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, direction, magnitude, controllers, counts
		FROM reports
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec    Record
			ts     string
			dir    int
			counts []byte
		)

		if err := rows.Scan(&rec.ID, &ts, &dir, &rec.Magnitude, &rec.Controllers, &counts); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse report timestamp: %w", err)
		}
		rec.Timestamp = parsed
		rec.Direction = direction.Coerce(dir)

		if err := json.Unmarshal(counts, &rec.Counts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal counts: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
