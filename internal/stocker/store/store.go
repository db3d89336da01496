// Package store provides SQLite-based storage for scraped articles and the
// history of runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RobinCoderZhao/stocker/internal/stocker/output"
	"github.com/RobinCoderZhao/stocker/pkg/storage"
)

// Schema is the SQLite schema for stocker.
const Schema = `
CREATE TABLE IF NOT EXISTS articles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ticker      TEXT NOT NULL,
    url         TEXT NOT NULL,
    sector      TEXT,
    industry    TEXT,
    article     TEXT NOT NULL,
    pubdate     TEXT,
    class       TEXT,
    run_id      TEXT,
    fetched_at  TEXT NOT NULL,
    UNIQUE (ticker, url)
);

CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    started_at  TEXT NOT NULL,
    finished_at TEXT,
    queries     INTEGER DEFAULT 0,
    urls        INTEGER DEFAULT 0,
    row_count   INTEGER DEFAULT 0,
    failures    INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_ticker ON articles(ticker);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Run is one pipeline execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Queries    int
	URLs       int
	Rows       int
	Failures   int
}

// Store provides stocker data persistence.
type Store struct {
	db  *storage.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies Schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := storage.Open(storage.Config{Path: path, WAL: true})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// StartRun records the start of a run.
func (s *Store) StartRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, r Run) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, queries = ?, urls = ?, row_count = ?, failures = ?
		WHERE id = ?
	`, s.now().UTC().Format(timeLayout), r.Queries, r.URLs, r.Rows, r.Failures, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", r.ID)
	}
	return nil
}

// SaveRows stores rows, skipping (ticker, url) pairs already present. It
// returns how many rows were new.
func (s *Store) SaveRows(ctx context.Context, runID string, rows []output.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	saved := 0
	fetchedAt := s.now().UTC().Format(time.RFC3339)
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO articles (ticker, url, sector, industry, article, pubdate, class, run_id, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			res, err := stmt.ExecContext(ctx, strings.ToUpper(r.Ticker), r.URL, r.Sector, r.Industry,
				r.Article, r.PubDate, r.Class, runID, fetchedAt)
			if err != nil {
				return fmt.Errorf("insert %s: %w", r.URL, err)
			}
			affected, _ := res.RowsAffected()
			saved += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save rows: %w", err)
	}
	return saved, nil
}

// SeenURLs returns the stored article URLs of ticker.
func (s *Store) SeenURLs(ctx context.Context, ticker string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM articles WHERE ticker = ?`, strings.ToUpper(ticker))
	if err != nil {
		return nil, fmt.Errorf("query seen urls: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		seen[u] = true
	}
	return seen, rows.Err()
}

// Articles returns the stored rows of ticker, or of every ticker when ticker
// is empty, oldest first.
func (s *Store) Articles(ctx context.Context, ticker string) ([]output.Row, error) {
	q := `SELECT ticker, url, sector, industry, article, pubdate, class FROM articles`
	var args []any
	if ticker != "" {
		q += ` WHERE ticker = ?`
		args = append(args, strings.ToUpper(ticker))
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []output.Row
	for rows.Next() {
		var r output.Row
		var sector, industry, pubdate, class sql.NullString
		if err := rows.Scan(&r.Ticker, &r.URL, &sector, &industry, &r.Article, &pubdate, &class); err != nil {
			return nil, err
		}
		r.Sector, r.Industry, r.PubDate, r.Class = sector.String, industry.String, pubdate.String, class.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ArticleCount returns the total number of stored articles.
func (s *Store) ArticleCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

const runColumns = `id, started_at, finished_at, queries, urls, row_count, failures`

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetRun returns the run with id, or nil when there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var r Run
	var started string
	var finished sql.NullString
	if err := sc.Scan(&r.ID, &started, &finished, &r.Queries, &r.URLs, &r.Rows, &r.Failures); err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		r.FinishedAt, _ = time.Parse(timeLayout, finished.String)
	}
	return &r, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
