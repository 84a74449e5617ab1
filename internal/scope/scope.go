// Package scope resolves, once per call, which users' data a caller may
// see. Every downstream query applies the resolved scope as a predicate,
// so visibility logic lives in exactly one place.
package scope

import (
	"github.com/Masterminds/squirrel"

	"github.com/eleven-am/chrono/internal/store"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID int64
	Role   store.Role
}

// Scope is the set of users whose data a call may touch: every user, or a
// single one.
type Scope struct {
	all    bool
	userID int64
}

// All covers every user. Only admins resolve to it.
func All() Scope {
	return Scope{all: true}
}

// Self covers exactly one user's data.
func Self(userID int64) Scope {
	return Scope{userID: userID}
}

// IsAll reports whether the scope spans all users.
func (s Scope) IsAll() bool {
	return s.all
}

// UserID returns the scoped user and whether the scope is user-bound.
func (s Scope) UserID() (int64, bool) {
	if s.all {
		return 0, false
	}
	return s.userID, true
}

// Predicate renders the scope as a query condition on the given column.
// An all-users scope adds no condition.
func (s Scope) Predicate(column string) squirrel.Sqlizer {
	if s.all {
		return nil
	}
	return squirrel.Eq{column: s.userID}
}

// Resolve determines the visibility scope for a caller and an optional
// explicitly-requested target user.
//
// Admins get the target they asked for, or everything when they asked for
// nothing. Common users always get themselves; naming anyone else fails
// with ErrForbidden. The client-supplied target is never trusted for
// non-admins.
func Resolve(caller Caller, targetUserID *int64) (Scope, error) {
	if caller.Role == store.RoleAdmin {
		if targetUserID != nil {
			return Self(*targetUserID), nil
		}
		return All(), nil
	}

	if targetUserID != nil && *targetUserID != caller.UserID {
		return Scope{}, store.ErrForbidden
	}
	return Self(caller.UserID), nil
}

// CanMutate reports whether the caller may mutate an entry owned by owner:
// admins may touch anything, others only their own rows.
func CanMutate(caller Caller, ownerID int64) bool {
	return caller.Role == store.RoleAdmin || caller.UserID == ownerID
}
