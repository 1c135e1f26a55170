package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobscout/internal/model"
)

var (
	_ model.SearchStore = (*SQLiteStore)(nil)
	_ model.LinkStore   = (*SQLiteStore)(nil)
)

// SQLiteStore keeps saved searches and delivered links in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS searches (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	keywords     TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	job_types    TEXT NOT NULL DEFAULT '',
	remote_types TEXT NOT NULL DEFAULT '',
	recency      TEXT NOT NULL DEFAULT 'any',
	filter_text  TEXT NOT NULL DEFAULT '',
	frequency    TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS delivered_links (
	search_id    TEXT NOT NULL,
	link         TEXT NOT NULL,
	delivered_at INTEGER NOT NULL,
	PRIMARY KEY (search_id, link)
);`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// The scheduler and deliverers write from several goroutines.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Add inserts or replaces a saved search.
func (s *SQLiteStore) Add(ctx context.Context, search model.ScheduledSearch) error {
	r := encodeSearch(search)
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO searches
		(id, user_id, keywords, location, job_types, remote_types, recency, filter_text, frequency, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Keywords, r.Location, r.JobTypes, r.RemoteTypes,
		r.Recency, r.FilterText, r.Frequency, r.Active, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving search %s: %w", search.ID, err)
	}
	return nil
}

// Remove deletes a saved search and its delivered links. Unknown ids are a no-op.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM searches WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing search %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM delivered_links WHERE search_id = ?", id); err != nil {
		return fmt.Errorf("removing links for search %s: %w", id, err)
	}
	return nil
}

// ListActive returns active searches, oldest first.
func (s *SQLiteStore) ListActive(ctx context.Context) ([]model.ScheduledSearch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, user_id, keywords, location, job_types, remote_types, recency, filter_text, frequency, active, created_at
		FROM searches WHERE active = 1 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduledSearch
	for rows.Next() {
		var r searchRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Keywords, &r.Location, &r.JobTypes, &r.RemoteTypes,
			&r.Recency, &r.FilterText, &r.Frequency, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		search, err := decodeSearch(r)
		if err != nil {
			return nil, err
		}
		out = append(out, search)
	}
	return out, rows.Err()
}

// HasDelivered returns true if link was already delivered for searchID.
func (s *SQLiteStore) HasDelivered(ctx context.Context, searchID, link string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM delivered_links WHERE search_id = ? AND link = ?", searchID, link).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking delivered status for %s: %w", link, err)
	}
	return true, nil
}

// MarkDelivered records link as delivered. If it already exists the call is a no-op.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, searchID, link string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO delivered_links (search_id, link, delivered_at) VALUES (?, ?, ?)",
		searchID, link, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("marking %s as delivered: %w", link, err)
	}
	return nil
}

// Cleanup deletes delivered-link entries older than the given duration.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).Unix()
	_, err := s.db.ExecContext(ctx, "DELETE FROM delivered_links WHERE delivered_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up links older than %v: %w", olderThan, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
