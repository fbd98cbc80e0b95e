// Package repository implements the wallet's backend.Store directly over
// PostgreSQL.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/database"
)

// Store implements backend.Store over a pgx pool or transaction.
type Store struct {
	db database.PGXDB
}

var _ backend.Store = (*Store)(nil)

// New creates a Store.
func New(db database.PGXDB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection. Used for testing.
func (s *Store) DB() database.PGXDB {
	return s.db
}

// rowErr maps a single-row read error, turning no-rows into the backend's
// not-found error.
func rowErr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return backend.NotFound(what)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// rowScanner is implemented by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAll collects rows with scan, closing rows when done.
func scanAll[T any](rows pgx.Rows, what string, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return out, nil
}
