// Package store provides a thin abstraction over the catalog's relational
// backend. Repositories issue their SQL through a Querier, which is satisfied
// by both the pooled connection set and an open transaction, so the same
// statements serve autocommit reads and the commit engine's transactional
// writes.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of database/sql used by repositories. Both *sql.DB
// and *sql.Tx satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps the backend connection pool.
type Store struct {
	db *sql.DB
}

// New creates a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Querier returns the pool-backed Querier for autocommit statements.
func (s *Store) Querier() Querier {
	return s.db
}

// Ping verifies the backend connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn inside a single backend transaction. The transaction is
// rolled back if fn returns an error or panics, committed otherwise.
// Cancelling ctx aborts the transaction with no visible effect.
func (s *Store) WithinTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
