package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Entry persistence operations. Each takes an sqlx.ExtContext so the timer
// can run them inside a transaction or directly against the pool.

var entryColumns = []string{"id", "user_id", "task_id", "client_id", "start_time", "end_time", "duration", "notes"}

// GetEntry loads an entry by id.
func GetEntry(ctx context.Context, q sqlx.ExtContext, id int64) (*TimeEntry, error) {
	query, args, err := psql.Select(entryColumns...).
		From("time_entries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var entry TimeEntry
	if err := sqlx.GetContext(ctx, q, &entry, query, args...); err != nil {
		return nil, classifyPQError(err, "get entry", "time_entries")
	}
	return &entry, nil
}

// GetEntryWithTask loads an entry together with its task name, needed for
// task-category rules at close time.
func GetEntryWithTask(ctx context.Context, q sqlx.ExtContext, id int64) (*EntryWithTask, error) {
	query, args, err := psql.Select(
		"te.id", "te.user_id", "te.task_id", "te.client_id",
		"te.start_time", "te.end_time", "te.duration", "te.notes",
		"t.name AS task_name",
	).
		From("time_entries te").
		Join("tasks t ON te.task_id = t.id").
		Where(squirrel.Eq{"te.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var entry EntryWithTask
	if err := sqlx.GetContext(ctx, q, &entry, query, args...); err != nil {
		return nil, classifyPQError(err, "get entry", "time_entries")
	}
	return &entry, nil
}

// ActiveEntry returns the user's open entry, or nil if the user is idle.
func ActiveEntry(ctx context.Context, q sqlx.ExtContext, userID int64) (*TimeEntry, error) {
	query, args, err := psql.Select(entryColumns...).
		From("time_entries").
		Where(squirrel.Eq{"user_id": userID}).
		Where("end_time IS NULL").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var entry TimeEntry
	err = sqlx.GetContext(ctx, q, &entry, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyPQError(err, "get active entry", "time_entries")
	}
	return &entry, nil
}

// TaskExists reports whether a task row exists.
func TaskExists(ctx context.Context, q sqlx.ExtContext, id int64) (bool, error) {
	return rowExists(ctx, q, "tasks", id)
}

// ClientExists reports whether a client row exists.
func ClientExists(ctx context.Context, q sqlx.ExtContext, id int64) (bool, error) {
	return rowExists(ctx, q, "clients", id)
}

func rowExists(ctx context.Context, q sqlx.ExtContext, table string, id int64) (bool, error) {
	query, args, err := psql.Select("1").
		From(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = sqlx.GetContext(ctx, q, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classifyPQError(err, "check reference", table)
	}
	return true, nil
}

// InsertEntry creates an open entry. The partial unique index on
// (user_id) WHERE end_time IS NULL turns a start race into
// ErrConflictActiveEntry instead of a second open row.
func InsertEntry(ctx context.Context, q sqlx.ExtContext, userID, taskID, clientID int64, start time.Time) (*TimeEntry, error) {
	query, args, err := psql.Insert("time_entries").
		Columns("user_id", "task_id", "client_id", "start_time").
		Values(userID, taskID, clientID, start).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query, args...); err != nil {
		return nil, classifyPQError(err, "insert entry", "time_entries")
	}

	return &TimeEntry{
		ID:        id,
		UserID:    userID,
		TaskID:    taskID,
		ClientID:  clientID,
		StartTime: start,
	}, nil
}

// CloseEntry sets end_time and duration on an open entry. The guard on
// end_time IS NULL makes the update a no-op when the entry is already
// closed; callers classify the zero-row case.
func CloseEntry(ctx context.Context, q sqlx.ExtContext, id int64, end time.Time, duration int64, notes *string) (int64, error) {
	update := psql.Update("time_entries").
		Set("end_time", end).
		Set("duration", duration).
		Where(squirrel.Eq{"id": id}).
		Where("end_time IS NULL")
	if notes != nil {
		update = update.Set("notes", *notes)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyPQError(err, "close entry", "time_entries")
	}
	return res.RowsAffected()
}

// UpdateEntry rewrites a historical entry in one atomic update.
func UpdateEntry(ctx context.Context, q sqlx.ExtContext, entry *TimeEntry) error {
	query, args, err := psql.Update("time_entries").
		Set("task_id", entry.TaskID).
		Set("client_id", entry.ClientID).
		Set("start_time", entry.StartTime).
		Set("end_time", entry.EndTime).
		Set("duration", entry.Duration).
		Set("notes", entry.Notes).
		Where(squirrel.Eq{"id": entry.ID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyPQError(err, "update entry", "time_entries")
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return &Error{Op: "update entry", Table: "time_entries", Err: ErrNotFound}
	}
	return nil
}

// UpdateEntryNotes replaces the notes of an entry.
func UpdateEntryNotes(ctx context.Context, q sqlx.ExtContext, id int64, notes string) error {
	query, args, err := psql.Update("time_entries").
		Set("notes", notes).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyPQError(err, "update notes", "time_entries")
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return &Error{Op: "update notes", Table: "time_entries", Err: ErrNotFound}
	}
	return nil
}

// DeleteEntry removes an entry outright.
func DeleteEntry(ctx context.Context, q sqlx.ExtContext, id int64) error {
	query, args, err := psql.Delete("time_entries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyPQError(err, "delete entry", "time_entries")
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return &Error{Op: "delete entry", Table: "time_entries", Err: ErrNotFound}
	}
	return nil
}
