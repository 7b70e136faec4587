package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier wraps a *sql.DB connection and provides helpers for common query patterns.
type Querier struct {
	db *sql.DB
}

// NewQuerier creates a new Querier instance.
func NewQuerier(db *sql.DB) *Querier {
	return &Querier{db: db}
}

// Exec runs a statement that returns no rows.
func (q *Querier) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// QueryRows executes a query that is expected to return multiple rows.
// scanFunc is called for each row returned by the query.
func (q *Querier) QueryRows(ctx context.Context, query string, scanFunc func(*sql.Rows) error, args ...any) error {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scanFunc(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}
