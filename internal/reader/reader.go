// Package reader provides database access to the alert match queue written
// by the upstream rules engine.
package reader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/ryvertools/ryver-relay/internal/config"
	"github.com/ryvertools/ryver-relay/internal/model"
)

// Reader handles database connections and queries against the match queue.
type Reader struct {
	db    *sql.DB
	cfg   *config.DatabaseConfig
	table string
}

// New creates a new Reader with the given database configuration.
func New(cfg *config.DatabaseConfig) (*Reader, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Reader{
		db:    db,
		cfg:   cfg,
		table: cfg.Table,
	}, nil
}

// Ping tests the database connection.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// FetchPending returns up to limit undelivered matches in queue order.
// A row whose fields blob fails to parse is kept with nil fields rather
// than dropped, so it still gets reported and acknowledged.
func (r *Reader) FetchPending(ctx context.Context, limit int) ([]model.Match, error) {
	query := fmt.Sprintf(`
		SELECT id, rule, ts, fields
		FROM %s
		WHERE dispatched_at IS NULL
		ORDER BY id ASC
		LIMIT $1
	`, r.table)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying pending matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var fields []byte
		if err := rows.Scan(&m.ID, &m.Rule, &m.Timestamp, &fields); err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &m.Fields); err != nil {
				log.Printf("Warning: match %d has malformed fields, ignoring them: %v", m.ID, err)
				m.Fields = nil
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating match rows: %w", err)
	}

	return matches, nil
}

// MarkDispatched acknowledges delivery of the given matches.
func (r *Reader) MarkDispatched(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET dispatched_at = now() WHERE id = ANY($1)", r.table)

	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("marking matches dispatched: %w", err)
	}
	return nil
}
