// Package timer implements the active-entry state machine: per user, either
// no entry is open (idle) or exactly one is (running). Start is the only
// path that opens an entry, and its check-then-insert runs inside a
// transaction with the partial unique index as the final arbiter.
package timer

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/chrono/internal/schema"
	"github.com/eleven-am/chrono/internal/scope"
	"github.com/eleven-am/chrono/internal/store"
)

type Timer struct {
	store *store.Store
	now   func() time.Time
}

func New(s *store.Store) *Timer {
	return &Timer{store: s, now: time.Now}
}

// NewWithClock injects a clock, for tests.
func NewWithClock(s *store.Store, now func() time.Time) *Timer {
	return &Timer{store: s, now: now}
}

// Start opens a new entry for the user against a (task, client) pair.
// Fails with ErrInvalidReference when either id does not exist and with
// ErrConflictActiveEntry when the user already has a running entry.
func (t *Timer) Start(ctx context.Context, userID, taskID, clientID int64) (*store.TimeEntry, error) {
	var entry *store.TimeEntry
	err := t.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		ok, err := store.TaskExists(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrInvalidReference
		}

		ok, err = store.ClientExists(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrInvalidReference
		}

		active, err := store.ActiveEntry(ctx, tx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			return store.ErrConflictActiveEntry
		}

		// A concurrent start that slipped past the check above hits the
		// partial unique index and comes back as ErrConflictActiveEntry.
		entry, err = store.InsertEntry(ctx, tx, userID, taskID, clientID, t.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// End closes an entry, stamping end_time and computing the duration in
// whole seconds. Non-empty notes supplied here are stored with the close.
// Entries against the complex-case task refuse to close until they carry
// notes, either pre-existing or supplied in this call.
func (t *Timer) End(ctx context.Context, entryID int64, caller scope.Caller, notes string) (*store.TimeEntry, error) {
	var closed *store.TimeEntry
	err := t.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := store.GetEntryWithTask(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if !scope.CanMutate(caller, entry.UserID) {
			return store.ErrForbidden
		}
		if !entry.Open() {
			return store.ErrAlreadyClosed
		}

		notes = strings.TrimSpace(notes)
		if entry.TaskName == schema.ComplexCaseTask && notes == "" && !hasNotes(entry.Notes) {
			return store.ErrMissingRequiredNotes
		}

		end := t.now()
		if end.Before(entry.StartTime) {
			end = entry.StartTime
		}
		duration := int64(end.Sub(entry.StartTime) / time.Second)

		var closeNotes *string
		if notes != "" {
			closeNotes = &notes
		}

		n, err := store.CloseEntry(ctx, tx, entryID, end, duration, closeNotes)
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrAlreadyClosed
		}

		result := entry.TimeEntry
		result.EndTime = &end
		result.Duration = &duration
		if closeNotes != nil {
			result.Notes = closeNotes
		}
		closed = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// Cancel deletes the caller's running entry without recording any duration.
// Self-only: there is no canceling on another user's behalf.
func (t *Timer) Cancel(ctx context.Context, userID int64) error {
	return t.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		active, err := store.ActiveEntry(ctx, tx, userID)
		if err != nil {
			return err
		}
		if active == nil {
			return store.ErrNotFound
		}
		return store.DeleteEntry(ctx, tx, active.ID)
	})
}

// EditFields are the replacement values for an entry rewrite. All fields
// are applied in one atomic update.
type EditFields struct {
	TaskID    int64
	ClientID  int64
	StartTime time.Time
	EndTime   time.Time
	Notes     *string
}

// Edit rewrites a historical entry and recomputes its duration from the new
// start/end pair. It does not go through the start/end validation; the
// target may be any entry the caller can mutate.
func (t *Timer) Edit(ctx context.Context, entryID int64, fields EditFields, caller scope.Caller) (*store.TimeEntry, error) {
	var edited *store.TimeEntry
	err := t.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := store.GetEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if !scope.CanMutate(caller, entry.UserID) {
			return store.ErrForbidden
		}
		if !fields.EndTime.After(fields.StartTime) {
			return store.ErrInvalidTimeRange
		}

		duration := int64(fields.EndTime.Sub(fields.StartTime) / time.Second)
		end := fields.EndTime

		entry.TaskID = fields.TaskID
		entry.ClientID = fields.ClientID
		entry.StartTime = fields.StartTime
		entry.EndTime = &end
		entry.Duration = &duration
		entry.Notes = fields.Notes

		if err := store.UpdateEntry(ctx, tx, entry); err != nil {
			return err
		}
		edited = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// Delete removes an entry in any state. Aggregates reflect the removal
// naturally; nothing else is recomputed.
func (t *Timer) Delete(ctx context.Context, entryID int64, caller scope.Caller) error {
	return t.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := store.GetEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if !scope.CanMutate(caller, entry.UserID) {
			return store.ErrForbidden
		}
		return store.DeleteEntry(ctx, tx, entry.ID)
	})
}

// UpdateNotes replaces the notes of a closed entry. Open entries take notes
// only through End, so a running timer's annotations cannot drift while the
// duration is still a moving target.
func (t *Timer) UpdateNotes(ctx context.Context, entryID int64, caller scope.Caller, notes string) (*store.TimeEntry, error) {
	var updated *store.TimeEntry
	err := t.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := store.GetEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if !scope.CanMutate(caller, entry.UserID) {
			return store.ErrForbidden
		}
		if entry.Open() {
			return store.ErrNotClosed
		}

		if err := store.UpdateEntryNotes(ctx, tx, entryID, notes); err != nil {
			return err
		}
		entry.Notes = &notes
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func hasNotes(notes *string) bool {
	return notes != nil && strings.TrimSpace(*notes) != ""
}
