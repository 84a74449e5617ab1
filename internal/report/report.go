// Package report computes duration aggregates over committed time entries.
// Every report composes the same pieces on one builder: a window, the
// caller's resolved scope, and optional client/task filters.
package report

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/chrono/internal/scope"
	"github.com/eleven-am/chrono/internal/store"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type Engine struct {
	db *sqlx.DB
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{db: s.DB()}
}

// Filters narrow a report beyond window and scope.
type Filters struct {
	ClientID *int64
	TaskID   *int64
}

type TaskTotal struct {
	TaskName     string `db:"task_name"`
	TotalSeconds int64  `db:"total_seconds"`
}

type ClientTotal struct {
	ClientName   string `db:"client_name"`
	TotalSeconds int64  `db:"total_seconds"`
}

type ClientTaskTotal struct {
	ClientName   string `db:"client_name"`
	TaskName     string `db:"task_name"`
	TotalSeconds int64  `db:"total_seconds"`
}

// TaskStats are per-task detailed figures over closed entries only; open
// entries would make count and average a moving target.
type TaskStats struct {
	TaskName       string `db:"task_name"`
	Entries        int64  `db:"entries"`
	TotalSeconds   int64  `db:"total_seconds"`
	AverageSeconds int64  `db:"-"`
}

type NoteEntry struct {
	ID         int64     `db:"id"`
	Username   string    `db:"username"`
	TaskName   string    `db:"task_name"`
	ClientName string    `db:"client_name"`
	StartTime  time.Time `db:"start_time"`
	EndTime    time.Time `db:"end_time"`
	Notes      string    `db:"notes"`
}

// EntryRow is a time entry joined with its display names for listings.
type EntryRow struct {
	ID         int64      `db:"id"`
	UserID     int64      `db:"user_id"`
	Username   string     `db:"username"`
	TaskID     int64      `db:"task_id"`
	TaskName   string     `db:"task_name"`
	ClientID   int64      `db:"client_id"`
	ClientName string     `db:"client_name"`
	StartTime  time.Time  `db:"start_time"`
	EndTime    *time.Time `db:"end_time"`
	Duration   *int64     `db:"duration"`
	Notes      *string    `db:"notes"`
}

// applyFilters appends window, scope and filter predicates. A nil window
// means unbounded; an all-users scope adds no user predicate.
func applyFilters(b squirrel.SelectBuilder, w Window, sc scope.Scope, f Filters) squirrel.SelectBuilder {
	if w != nil {
		b = b.Where(w)
	}
	if p := sc.Predicate("te.user_id"); p != nil {
		b = b.Where(p)
	}
	if f.ClientID != nil {
		b = b.Where(squirrel.Eq{"te.client_id": *f.ClientID})
	}
	if f.TaskID != nil {
		b = b.Where(squirrel.Eq{"te.task_id": *f.TaskID})
	}
	return b
}

// ByTask totals elapsed time per task, longest first, name as tiebreaker.
func (e *Engine) ByTask(ctx context.Context, w Window, sc scope.Scope, f Filters) ([]TaskTotal, error) {
	b := psql.Select("t.name AS task_name", elapsedExpr+" AS total_seconds").
		From("time_entries te").
		Join("tasks t ON te.task_id = t.id")
	b = applyFilters(b, w, sc, f).
		GroupBy("t.name").
		OrderBy("total_seconds DESC", "task_name ASC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []TaskTotal
	if err := sqlx.SelectContext(ctx, e.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByClient totals elapsed time per client, longest first.
func (e *Engine) ByClient(ctx context.Context, w Window, sc scope.Scope, f Filters) ([]ClientTotal, error) {
	b := psql.Select("c.name AS client_name", elapsedExpr+" AS total_seconds").
		From("time_entries te").
		Join("clients c ON te.client_id = c.id")
	b = applyFilters(b, w, sc, f).
		GroupBy("c.name").
		OrderBy("total_seconds DESC", "client_name ASC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []ClientTotal
	if err := sqlx.SelectContext(ctx, e.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByClientTask totals elapsed time per (client, task) pair, grouped under
// each client with the heaviest tasks first.
func (e *Engine) ByClientTask(ctx context.Context, w Window, sc scope.Scope, f Filters) ([]ClientTaskTotal, error) {
	b := psql.Select("c.name AS client_name", "t.name AS task_name", elapsedExpr+" AS total_seconds").
		From("time_entries te").
		Join("clients c ON te.client_id = c.id").
		Join("tasks t ON te.task_id = t.id")
	b = applyFilters(b, w, sc, f).
		GroupBy("c.name", "t.name").
		OrderBy("client_name ASC", "total_seconds DESC", "task_name ASC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []ClientTaskTotal
	if err := sqlx.SelectContext(ctx, e.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// DetailedByTask reports entry count, total and average duration per task
// over closed entries.
func (e *Engine) DetailedByTask(ctx context.Context, w Window, sc scope.Scope, f Filters) ([]TaskStats, error) {
	b := psql.Select(
		"t.name AS task_name",
		"COUNT(*) AS entries",
		"COALESCE(SUM(te.duration), 0)::bigint AS total_seconds",
	).
		From("time_entries te").
		Join("tasks t ON te.task_id = t.id").
		Where("te.end_time IS NOT NULL")
	b = applyFilters(b, w, sc, f).
		GroupBy("t.name").
		OrderBy("total_seconds DESC", "task_name ASC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []TaskStats
	if err := sqlx.SelectContext(ctx, e.db, &rows, query, args...); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AverageSeconds = averageSeconds(rows[i].TotalSeconds, rows[i].Entries)
	}
	return rows, nil
}

// Notes lists closed entries carrying non-empty notes, newest first.
func (e *Engine) Notes(ctx context.Context, w Window, sc scope.Scope, f Filters) ([]NoteEntry, error) {
	b := psql.Select(
		"te.id", "u.username", "t.name AS task_name", "c.name AS client_name",
		"te.start_time", "te.end_time", "te.notes",
	).
		From("time_entries te").
		Join("users u ON te.user_id = u.id").
		Join("tasks t ON te.task_id = t.id").
		Join("clients c ON te.client_id = c.id").
		Where("te.end_time IS NOT NULL").
		Where("te.notes IS NOT NULL AND btrim(te.notes) <> ''")
	b = applyFilters(b, w, sc, f).
		OrderBy("te.start_time DESC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []NoteEntry
	if err := sqlx.SelectContext(ctx, e.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListEntries returns the entries visible in the given scope, joined with
// their display names, newest first. The optional window narrows the list
// the same way it narrows reports.
func (e *Engine) ListEntries(ctx context.Context, w Window, sc scope.Scope, f Filters) ([]EntryRow, error) {
	b := psql.Select(
		"te.id", "te.user_id", "u.username",
		"te.task_id", "t.name AS task_name",
		"te.client_id", "c.name AS client_name",
		"te.start_time", "te.end_time", "te.duration", "te.notes",
	).
		From("time_entries te").
		Join("users u ON te.user_id = u.id").
		Join("tasks t ON te.task_id = t.id").
		Join("clients c ON te.client_id = c.id")
	b = applyFilters(b, w, sc, f).
		OrderBy("te.start_time DESC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []EntryRow
	if err := sqlx.SelectContext(ctx, e.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
