package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateTask(t *testing.T) {
	t.Run("inserts and returns the task", func(t *testing.T) {
		s, mock := newTestStore(t)

		mock.ExpectQuery(`INSERT INTO tasks \(name\) VALUES \(\$1\) RETURNING id`).
			WithArgs("Fechamento").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

		task, err := s.CreateTask(context.Background(), "Fechamento")
		require.NoError(t, err)
		assert.Equal(t, int64(5), task.ID)
		assert.Equal(t, "Fechamento", task.Name)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		s, mock := newTestStore(t)

		mock.ExpectQuery(`INSERT INTO tasks \(name\) VALUES \(\$1\) RETURNING id`).
			WithArgs("Fechamento").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "tasks_name_key"})

		_, err := s.CreateTask(context.Background(), "Fechamento")
		assert.ErrorIs(t, err, ErrDuplicateName)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteTask(t *testing.T) {
	t.Run("reports how many entries the cascade removed", func(t *testing.T) {
		s, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM time_entries WHERE task_id = \$1`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		removed, err := s.DeleteTask(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing task reports not found", func(t *testing.T) {
		s, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM time_entries WHERE task_id = \$1`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := s.DeleteTask(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListClients(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT id, name FROM clients ORDER BY name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(2, "Amazon Polpas").
			AddRow(1, "Argo Foods"))

	clients, err := s.ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Amazon Polpas", clients[0].Name)
	assert.Equal(t, "Argo Foods", clients[1].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`INSERT INTO users \(username,password,role\) VALUES \(\$1,\$2,\$3\) RETURNING id`).
		WithArgs("maria", "hashed", "common").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	user, err := s.CreateUser(context.Background(), "maria", "hashed", RoleCommon)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, RoleCommon, user.Role)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM time_entries WHERE user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := s.DeleteUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)

	require.NoError(t, mock.ExpectationsWereMet())
}
