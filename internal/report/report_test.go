package report

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/chrono/internal/scope"
	"github.com/eleven-am/chrono/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewEngine(store.NewWithDB(sqlx.NewDb(db, "postgres"))), mock
}

func TestByTask(t *testing.T) {
	t.Run("orders totals descending with name as tiebreaker", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectQuery(`SELECT t\.name AS task_name, COALESCE.* FROM time_entries te JOIN tasks t ON te\.task_id = t\.id WHERE te\.user_id = \$1 GROUP BY t\.name ORDER BY total_seconds DESC, task_name ASC`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"task_name", "total_seconds"}).
				AddRow("Meetings", 5400).
				AddRow("Support", 900))

		rows, err := engine.ByTask(context.Background(), nil, scope.Self(7), Filters{})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, TaskTotal{TaskName: "Meetings", TotalSeconds: 5400}, rows[0])
		assert.Equal(t, TaskTotal{TaskName: "Support", TotalSeconds: 900}, rows[1])

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("window and client filter bind before the scope column order", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		clientID := int64(3)

		mock.ExpectQuery(`SELECT t\.name AS task_name, COALESCE.* WHERE DATE_TRUNC\('day', te\.start_time\) = DATE_TRUNC\('day', \$1::timestamptz\) AND te\.user_id = \$2 AND te\.client_id = \$3 GROUP BY t\.name`).
			WithArgs(date, int64(7), clientID).
			WillReturnRows(sqlmock.NewRows([]string{"task_name", "total_seconds"}))

		rows, err := engine.ByTask(context.Background(), Day(date), scope.Self(7), Filters{ClientID: &clientID})
		require.NoError(t, err)
		assert.Empty(t, rows)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all-users scope adds no user predicate", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectQuery(`SELECT t\.name AS task_name, COALESCE.* FROM time_entries te JOIN tasks t ON te\.task_id = t\.id GROUP BY t\.name`).
			WillReturnRows(sqlmock.NewRows([]string{"task_name", "total_seconds"}).
				AddRow("Fechamento", 100))

		rows, err := engine.ByTask(context.Background(), nil, scope.All(), Filters{})
		require.NoError(t, err)
		require.Len(t, rows, 1)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestByClient(t *testing.T) {
	engine, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT c\.name AS client_name, COALESCE.* FROM time_entries te JOIN clients c ON te\.client_id = c\.id WHERE te\.user_id = \$1 GROUP BY c\.name ORDER BY total_seconds DESC, client_name ASC`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"client_name", "total_seconds"}).
			AddRow("Argo Foods", 7200).
			AddRow("Ebram", 1200))

	rows, err := engine.ByClient(context.Background(), nil, scope.Self(7), Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Argo Foods", rows[0].ClientName)
	assert.Equal(t, int64(7200), rows[0].TotalSeconds)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestByClientTask(t *testing.T) {
	engine, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT c\.name AS client_name, t\.name AS task_name, COALESCE.* GROUP BY c\.name, t\.name ORDER BY client_name ASC, total_seconds DESC, task_name ASC`).
		WithArgs(11, 2025).
		WillReturnRows(sqlmock.NewRows([]string{"client_name", "task_name", "total_seconds"}).
			AddRow("Argo Foods", "Fechamento", 3600).
			AddRow("Argo Foods", "Cadastro cotação", 600).
			AddRow("Ebram", "Fechamento", 900))

	rows, err := engine.ByClientTask(context.Background(), ISOWeek(2025, 11), scope.All(), Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Argo Foods", rows[0].ClientName)
	assert.Equal(t, "Fechamento", rows[0].TaskName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailedByTask(t *testing.T) {
	engine, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT t\.name AS task_name, COUNT\(\*\) AS entries, COALESCE\(SUM\(te\.duration\), 0\)::bigint AS total_seconds FROM time_entries te JOIN tasks t ON te\.task_id = t\.id WHERE te\.end_time IS NOT NULL AND te\.user_id = \$1 GROUP BY t\.name`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"task_name", "entries", "total_seconds"}).
			AddRow("Fechamento", 2, 5401).
			AddRow("Support", 3, 100))

	rows, err := engine.DetailedByTask(context.Background(), nil, scope.Self(7), Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// averages round half up
	assert.Equal(t, int64(2701), rows[0].AverageSeconds)
	assert.Equal(t, int64(33), rows[1].AverageSeconds)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotes(t *testing.T) {
	engine, mock := newTestEngine(t)

	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	ended := started.Add(time.Hour)

	mock.ExpectQuery(`SELECT te\.id, u\.username, t\.name AS task_name, c\.name AS client_name, te\.start_time, te\.end_time, te\.notes FROM time_entries te .* WHERE te\.end_time IS NOT NULL AND te\.notes IS NOT NULL AND btrim\(te\.notes\) <> '' AND te\.user_id = \$1 ORDER BY te\.start_time DESC`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "task_name", "client_name", "start_time", "end_time", "notes"}).
			AddRow(41, "maria", "Casos complexos", "Argo Foods", started, ended, "escalated to legal"))

	rows, err := engine.Notes(context.Background(), nil, scope.Self(7), Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "escalated to legal", rows[0].Notes)
	assert.Equal(t, "maria", rows[0].Username)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntries(t *testing.T) {
	t.Run("self scope binds the caller's id", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT te\.id, te\.user_id, u\.username, te\.task_id, t\.name AS task_name, te\.client_id, c\.name AS client_name, te\.start_time, te\.end_time, te\.duration, te\.notes FROM time_entries te .* WHERE te\.user_id = \$1 ORDER BY te\.start_time DESC`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "username", "task_id", "task_name",
				"client_id", "client_name", "start_time", "end_time", "duration", "notes",
			}).AddRow(41, 7, "maria", 2, "Fechamento", 3, "Argo Foods", started, nil, nil, nil))

		rows, err := engine.ListEntries(context.Background(), nil, scope.Self(7), Filters{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(7), rows[0].UserID)
		assert.Nil(t, rows[0].EndTime)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matches yields an empty list, not an error", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectQuery(`SELECT .* FROM time_entries te .* ORDER BY te\.start_time DESC`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "username", "task_id", "task_name",
				"client_id", "client_name", "start_time", "end_time", "duration", "notes",
			}))

		rows, err := engine.ListEntries(context.Background(), nil, scope.All(), Filters{})
		require.NoError(t, err)
		assert.Empty(t, rows)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}
