package store

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Reference-data CRUD for tasks, clients and users. Deleting a task, client
// or user cascades to its time entries; the delete operations report how
// many entries the cascade removed so the boundary can warn the caller.

// CreateTask inserts a task with a globally unique name.
func (s *Store) CreateTask(ctx context.Context, name string) (*Task, error) {
	id, err := s.insertNamed(ctx, "tasks", name)
	if err != nil {
		return nil, err
	}
	return &Task{ID: id, Name: name}, nil
}

// ListTasks returns all tasks ordered by name.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := s.selectNamed(ctx, "tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RenameTask updates a task's name, rejecting duplicates.
func (s *Store) RenameTask(ctx context.Context, id int64, name string) error {
	return s.renameNamed(ctx, "tasks", id, name)
}

// DeleteTask removes a task and returns how many time entries the cascade
// took with it.
func (s *Store) DeleteTask(ctx context.Context, id int64) (int64, error) {
	return s.deleteWithCascadeCount(ctx, "tasks", "task_id", id)
}

// CreateClient inserts a client with a globally unique name.
func (s *Store) CreateClient(ctx context.Context, name string) (*Client, error) {
	id, err := s.insertNamed(ctx, "clients", name)
	if err != nil {
		return nil, err
	}
	return &Client{ID: id, Name: name}, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]Client, error) {
	var clients []Client
	if err := s.selectNamed(ctx, "clients", &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// RenameClient updates a client's name, rejecting duplicates.
func (s *Store) RenameClient(ctx context.Context, id int64, name string) error {
	return s.renameNamed(ctx, "clients", id, name)
}

// DeleteClient removes a client and returns how many time entries the
// cascade took with it.
func (s *Store) DeleteClient(ctx context.Context, id int64) (int64, error) {
	return s.deleteWithCascadeCount(ctx, "clients", "client_id", id)
}

func (s *Store) insertNamed(ctx context.Context, table, name string) (int64, error) {
	query, args, err := psql.Insert(table).
		Columns("name").
		Values(name).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := sqlx.GetContext(ctx, s.db, &id, query, args...); err != nil {
		return 0, classifyPQError(err, "create", table)
	}
	return id, nil
}

func (s *Store) selectNamed(ctx context.Context, table string, dest interface{}) error {
	query, args, err := psql.Select("id", "name").
		From(table).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return err
	}

	if err := sqlx.SelectContext(ctx, s.db, dest, query, args...); err != nil {
		return classifyPQError(err, "list", table)
	}
	return nil
}

func (s *Store) renameNamed(ctx context.Context, table string, id int64, name string) error {
	query, args, err := psql.Update(table).
		Set("name", name).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyPQError(err, "rename", table)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return &Error{Op: "rename", Table: table, Err: ErrNotFound}
	}
	return nil
}

func (s *Store) deleteWithCascadeCount(ctx context.Context, table, fkColumn string, id int64) (int64, error) {
	var removed int64
	err := s.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		countQuery, countArgs, err := psql.Select("COUNT(*)").
			From("time_entries").
			Where(squirrel.Eq{fkColumn: id}).
			ToSql()
		if err != nil {
			return err
		}
		if err := sqlx.GetContext(ctx, tx, &removed, countQuery, countArgs...); err != nil {
			return classifyPQError(err, "count entries", "time_entries")
		}

		delQuery, delArgs, err := psql.Delete(table).
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, delQuery, delArgs...)
		if err != nil {
			return classifyPQError(err, "delete", table)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return &Error{Op: "delete", Table: table, Err: ErrNotFound}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CreateUser inserts a user with the given role. The password arrives
// already hashed; hashing is the auth layer's job.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, role Role) (*User, error) {
	query, args, err := psql.Insert("users").
		Columns("username", "password", "role").
		Values(username, passwordHash, role).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var id int64
	if err := sqlx.GetContext(ctx, s.db, &id, query, args...); err != nil {
		return nil, classifyPQError(err, "create user", "users")
	}
	return &User{ID: id, Username: username, PasswordHash: passwordHash, Role: role}, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	query, args, err := psql.Select("id", "username", "password", "role").
		From("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := sqlx.GetContext(ctx, s.db, &user, query, args...); err != nil {
		return nil, classifyPQError(err, "get user", "users")
	}
	return &user, nil
}

// GetUserByUsername loads a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query, args, err := psql.Select("id", "username", "password", "role").
		From("users").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := sqlx.GetContext(ctx, s.db, &user, query, args...); err != nil {
		return nil, classifyPQError(err, "get user", "users")
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	query, args, err := psql.Select("id", "username", "password", "role").
		From("users").
		OrderBy("username ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	if err := sqlx.SelectContext(ctx, s.db, &users, query, args...); err != nil {
		return nil, classifyPQError(err, "list users", "users")
	}
	return users, nil
}

// UpdateUserPassword replaces a user's password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	query, args, err := psql.Update("users").
		Set("password", passwordHash).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyPQError(err, "update password", "users")
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return &Error{Op: "update password", Table: "users", Err: ErrNotFound}
	}
	return nil
}

// DeleteUser removes a user and returns how many of their time entries the
// cascade removed.
func (s *Store) DeleteUser(ctx context.Context, id int64) (int64, error) {
	return s.deleteWithCascadeCount(ctx, "users", "user_id", id)
}
