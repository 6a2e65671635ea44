// Package store persists enriched news records in SQLite.
//
// The news table is the durable contract with the presentation layer:
// id, title, summary, source, url (unique), date (YYYY-MM-DD), category,
// ai_analysis, risk_level.
//
// # Thread Safety
//
// Store is safe for concurrent use. The pool is capped at one connection
// with a busy timeout, so parallel writers queue instead of failing, and
// the url UNIQUE index is the single point of serialization for inserts:
// a race between an Exists pre-check and a concurrent Insert degrades to
// ErrDuplicate, never a corrupt row.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"threatfeed/internal/logging"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DateLayout is the calendar-date format used in the date column.
const DateLayout = "2006-01-02"

// ErrDuplicate is returned by Insert when a record with the same URL
// already exists. Callers treat it as a benign skip.
var ErrDuplicate = errors.New("record with this url already exists")

// Record is a persisted, enriched news item.
type Record struct {
	ID        int64
	Title     string
	Summary   string
	Source    string
	URL       string
	Date      time.Time // calendar date, midnight UTC
	Category  string
	Analysis  string
	RiskLevel string
}

// Filter narrows Query results. Zero values mean "no constraint".
type Filter struct {
	Source   string
	Category string
	Risk     string
	From     time.Time // inclusive
	To       time.Time // inclusive
	Limit    int
	Offset   int
}

// Store handles persistence of enriched news records.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. The database is created
// if it doesn't exist and the schema is applied automatically. A failure
// here is the only fatal error class in the pipeline.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors
	// under concurrent inserts from the enrichment workers.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logging.Debug("Database initialized", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS news (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		summary TEXT,
		source TEXT,
		url TEXT UNIQUE,
		date TEXT,
		category TEXT,
		ai_analysis TEXT,
		risk_level TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_news_date ON news(date DESC);
	CREATE INDEX IF NOT EXISTS idx_news_source ON news(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Exists reports whether a record with the given URL is already stored.
func (s *Store) Exists(url string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM news WHERE url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check url: %w", err)
	}
	return true, nil
}

// Insert stores a new record. The url UNIQUE index is the final dedup
// authority: inserting an existing URL returns ErrDuplicate.
func (s *Store) Insert(rec Record) error {
	_, err := s.db.Exec(`
		INSERT INTO news (title, summary, source, url, date, category, ai_analysis, risk_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Title,
		rec.Summary,
		rec.Source,
		rec.URL,
		rec.Date.Format(DateLayout),
		rec.Category,
		rec.Analysis,
		rec.RiskLevel,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// isUniqueViolation detects a UNIQUE constraint failure from the sqlite
// driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Query retrieves records matching the filter, newest first.
func (s *Store) Query(f Filter) ([]Record, error) {
	query := `
		SELECT id, title, summary, source, url, date, category, ai_analysis, risk_level
		FROM news
		WHERE 1 = 1
	`
	var args []interface{}

	if f.Source != "" {
		query += " AND source = ?"
		args = append(args, f.Source)
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Risk != "" {
		query += " AND risk_level = ?"
		args = append(args, f.Risk)
	}
	if !f.From.IsZero() {
		query += " AND date >= ?"
		args = append(args, f.From.Format(DateLayout))
	}
	if !f.To.IsZero() {
		query += " AND date <= ?"
		args = append(args, f.To.Format(DateLayout))
	}

	query += " ORDER BY date DESC, id DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var date string
		err := rows.Scan(
			&rec.ID,
			&rec.Title,
			&rec.Summary,
			&rec.Source,
			&rec.URL,
			&date,
			&rec.Category,
			&rec.Analysis,
			&rec.RiskLevel,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		// Legacy rows may carry a time component; keep the date part.
		if t, err := time.Parse(DateLayout, strings.SplitN(date, " ", 2)[0]); err == nil {
			rec.Date = t
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Sweep deletes records whose date is strictly older than
// today − retentionDays. Returns the number of deleted records.
// Idempotent: a second run with no new data deletes nothing.
func (s *Store) Sweep(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(DateLayout)

	result, err := s.db.Exec("DELETE FROM news WHERE date < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep old records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	if deleted > 0 {
		logging.Info("Removed old news records", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// ReconcileDates rewrites records from the named source whose stored date
// is yesterday to today. Relative-offset sources queried late in the day
// occasionally report yesterday for articles published today; this is a
// best-effort heuristic correction, kept out of the date-parsing path.
// The LIKE prefix match also catches legacy rows with a time component;
// their time part is kept, only the date prefix is rewritten.
func (s *Store) ReconcileDates(source string) (int64, error) {
	today := time.Now().UTC().Format(DateLayout)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(DateLayout)

	result, err := s.db.Exec(
		"UPDATE news SET date = ? || substr(date, 11) WHERE source = ? AND date LIKE ?",
		today, source, yesterday+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile dates: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count updated rows: %w", err)
	}
	if updated > 0 {
		logging.Info("Reconciled article dates", "source", source, "updated", updated)
	}
	return updated, nil
}

// Count returns the total number of stored records.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM news").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// CountBy returns record counts grouped by the given column, which must
// be one of "category", "risk_level", or "source".
func (s *Store) CountBy(column string) (map[string]int, error) {
	switch column {
	case "category", "risk_level", "source":
	default:
		return nil, fmt.Errorf("unsupported group column: %s", column)
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT %s, COUNT(*) FROM news GROUP BY %s", column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to count by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return counts, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
