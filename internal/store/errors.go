package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Business-rule errors. These are expected outcomes and are checked with
// errors.Is at the boundary; anything else is a store failure.
var (
	ErrNotFound             = errors.New("record not found")
	ErrInvalidReference     = errors.New("task or client does not exist")
	ErrConflictActiveEntry  = errors.New("an entry is already running for this user")
	ErrForbidden            = errors.New("caller lacks permission for this resource")
	ErrAlreadyClosed        = errors.New("entry is already closed")
	ErrInvalidTimeRange     = errors.New("end time must be after start time")
	ErrMissingRequiredNotes = errors.New("this task requires notes before closing")
	ErrNotClosed            = errors.New("entry is not closed yet")
	ErrDuplicateName        = errors.New("name already in use")
)

// Error provides detailed error information for store failures
type Error struct {
	Op         string // Operation that failed
	Table      string // Table involved
	Err        error  // Underlying error
	Constraint string // Constraint name (if applicable)
}

func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("store: %s", e.Op))

	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}

	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("constraint=%s", e.Constraint))
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Postgres error codes and constraint names the core depends on.
const (
	pqUniqueViolation = "23505"
	pqForeignKey      = "23503"
	pqCheckViolation  = "23514"

	// Partial unique index over (user_id) WHERE end_time IS NULL; a lost
	// race between two concurrent starts lands here.
	constraintOneOpenEntry = "ux_time_entries_one_open"
	constraintTimeOrder    = "chk_time_order"
)

// classifyPQError converts driver errors into the store's error taxonomy so
// callers never have to inspect Postgres codes themselves.
func classifyPQError(err error, op, table string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Op: op, Table: table, Err: ErrNotFound}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			if pqErr.Constraint == constraintOneOpenEntry {
				return &Error{Op: op, Table: table, Err: ErrConflictActiveEntry, Constraint: pqErr.Constraint}
			}
			return &Error{Op: op, Table: table, Err: ErrDuplicateName, Constraint: pqErr.Constraint}
		case pqForeignKey:
			return &Error{Op: op, Table: table, Err: ErrInvalidReference, Constraint: pqErr.Constraint}
		case pqCheckViolation:
			if pqErr.Constraint == constraintTimeOrder {
				return &Error{Op: op, Table: table, Err: ErrInvalidTimeRange, Constraint: pqErr.Constraint}
			}
		}
	}

	return &Error{Op: op, Table: table, Err: err}
}
