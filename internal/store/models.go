package store

import "time"

// Role determines how much of the data a user may see and mutate.
type Role string

const (
	RoleCommon Role = "common"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password"`
	Role         Role   `db:"role"`
}

type Task struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type Client struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// TimeEntry is the central fact record. An entry with a NULL end_time is the
// owner's active timer; Duration is set once, when the entry is closed.
type TimeEntry struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	TaskID    int64      `db:"task_id"`
	ClientID  int64      `db:"client_id"`
	StartTime time.Time  `db:"start_time"`
	EndTime   *time.Time `db:"end_time"`
	Duration  *int64     `db:"duration"`
	Notes     *string    `db:"notes"`
}

// Open reports whether the entry is still running.
func (e *TimeEntry) Open() bool {
	return e.EndTime == nil
}

// EntryWithTask carries the owning task's name alongside the entry, for
// rules that depend on the task category.
type EntryWithTask struct {
	TimeEntry
	TaskName string `db:"task_name"`
}
