package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobscout/internal/model"
)

var (
	_ model.SearchStore = (*PostgresStore)(nil)
	_ model.LinkStore   = (*PostgresStore)(nil)
)

// PostgresStore keeps saved searches and delivered links in Postgres, for
// deployments where the front-end and the daemon share a database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobscout_searches (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	keywords     TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	job_types    TEXT NOT NULL DEFAULT '',
	remote_types TEXT NOT NULL DEFAULT '',
	recency      TEXT NOT NULL DEFAULT 'any',
	filter_text  TEXT NOT NULL DEFAULT '',
	frequency    TEXT NOT NULL,
	active       BOOLEAN NOT NULL DEFAULT true,
	created_at   BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS jobscout_delivered_links (
	search_id    TEXT NOT NULL,
	link         TEXT NOT NULL,
	delivered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (search_id, link)
);`

// NewPostgresStore connects to dsn, verifies the connection and ensures the
// tables exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Add upserts a saved search.
func (s *PostgresStore) Add(ctx context.Context, search model.ScheduledSearch) error {
	r := encodeSearch(search)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobscout_searches
		   (id, user_id, keywords, location, job_types, remote_types, recency, filter_text, frequency, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = EXCLUDED.user_id, keywords = EXCLUDED.keywords, location = EXCLUDED.location,
		   job_types = EXCLUDED.job_types, remote_types = EXCLUDED.remote_types, recency = EXCLUDED.recency,
		   filter_text = EXCLUDED.filter_text, frequency = EXCLUDED.frequency, active = EXCLUDED.active`,
		r.ID, r.UserID, r.Keywords, r.Location, r.JobTypes, r.RemoteTypes,
		r.Recency, r.FilterText, r.Frequency, r.Active, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert search %s: %w", search.ID, err)
	}
	return nil
}

// Remove deletes a saved search and its delivered links in one transaction.
func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM jobscout_searches WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete search %s: %w", id, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM jobscout_delivered_links WHERE search_id = $1`, id); err != nil {
			return fmt.Errorf("delete links for search %s: %w", id, err)
		}
		return nil
	})
}

// ListActive returns active searches, oldest first.
func (s *PostgresStore) ListActive(ctx context.Context) ([]model.ScheduledSearch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, keywords, location, job_types, remote_types, recency, filter_text,
		        frequency, active, created_at
		 FROM jobscout_searches
		 WHERE active = true
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduledSearch
	for rows.Next() {
		var r searchRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Keywords, &r.Location, &r.JobTypes, &r.RemoteTypes,
			&r.Recency, &r.FilterText, &r.Frequency, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
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
func (s *PostgresStore) HasDelivered(ctx context.Context, searchID, link string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM jobscout_delivered_links WHERE search_id = $1 AND link = $2`,
		searchID, link,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query delivered link: %w", err)
	}
	return true, nil
}

// MarkDelivered records link as delivered; repeats are ignored.
func (s *PostgresStore) MarkDelivered(ctx context.Context, searchID, link string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobscout_delivered_links (search_id, link) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		searchID, link,
	)
	if err != nil {
		return fmt.Errorf("insert delivered link: %w", err)
	}
	return nil
}

// Cleanup deletes delivered-link entries older than the given duration.
func (s *PostgresStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	if _, err := s.pool.Exec(ctx, `DELETE FROM jobscout_delivered_links WHERE delivered_at < $1`, cutoff); err != nil {
		return fmt.Errorf("cleanup delivered links: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
