package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// psql is the shared builder; every query in the module goes through it so
// placeholder numbering is never tracked by hand.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Store wraps the database handle and is the single entry point for
// persistence operations.
type Store struct {
	db *sqlx.DB
}

// New opens a connection pool against the given DSN.
func New(dsn string, maxConns int) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle. Used by tests and the schema runner.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for read paths that need no transaction.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTransaction executes fn within a transaction, rolling back on error or
// panic. State transitions that must not interleave (the check-then-insert
// in Start) run through here.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
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
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
