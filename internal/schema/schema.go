package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The schema is fixed and applied idempotently on startup or via the
// migrate command. Invariant bearers:
//   - chk_time_order: end_time is NULL or not before start_time
//   - ux_time_entries_one_open: at most one open entry per user, enforced
//     by the database so it survives process restarts and start races
//   - ON DELETE CASCADE on all three foreign keys
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT 'common'
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS time_entries (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		start_time TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		end_time TIMESTAMP WITH TIME ZONE,
		duration INTEGER,
		notes TEXT,
		CONSTRAINT chk_time_order CHECK (end_time IS NULL OR end_time >= start_time)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_time_entries_one_open
		ON time_entries (user_id) WHERE end_time IS NULL`,
}

// Apply creates the schema if it does not exist yet.
func Apply(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
