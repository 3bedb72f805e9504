package connection

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
)

// newMockManager builds a postgres-dialect manager backed by sqlmock, with
// exact-string query matching so session directives are verified verbatim.
func newMockManager(t *testing.T, cfg Config) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mgr, err := NewManager(cfg, slog.Default())
	require.NoError(t, err)
	mgr.db = sqlx.NewDb(db, "sqlmock")
	return mgr, mock
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(Config{URL: ""}, nil)
	assert.Error(t, err)

	_, err = NewManager(Config{URL: "oracle://h/db"}, nil)
	assert.Error(t, err)

	mgr, err := NewManager(Config{URL: "postgres://u@h:5432/db"}, nil)
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, mgr.Dialect())
	assert.Equal(t, defaultPoolSize, mgr.Config().PoolSize)
}

func TestWithConn_NotInitialized(t *testing.T) {
	mgr, err := NewManager(Config{URL: "postgres://u@h:5432/db"}, nil)
	require.NoError(t, err)

	err = mgr.WithConn(context.Background(), func(context.Context, *sqlx.Conn) error {
		t.Fatal("fn must not run without an initialized pool")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestWithConn_AppliesSessionDirectives(t *testing.T) {
	mgr, mock := newMockManager(t, Config{
		URL:              "postgres://u@h:5432/db",
		ReadOnly:         true,
		StatementTimeout: 30,
	})

	mock.ExpectExec("SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET statement_timeout = 30000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	err := mgr.WithConn(context.Background(), func(ctx context.Context, conn *sqlx.Conn) error {
		var one int
		return conn.GetContext(ctx, &one, "SELECT 1")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithConn_SkipsDirectivesWhenDisabled(t *testing.T) {
	mgr, mock := newMockManager(t, Config{
		URL:              "postgres://u@h:5432/db",
		ReadOnly:         false,
		StatementTimeout: 30,
	})

	// Only the statement timeout; no read-only directive.
	mock.ExpectExec("SET statement_timeout = 30000").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := mgr.WithConn(context.Background(), func(context.Context, *sqlx.Conn) error {
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithConn_DirectiveFailureAborts(t *testing.T) {
	mgr, mock := newMockManager(t, Config{
		URL:              "postgres://u@h:5432/db",
		ReadOnly:         true,
		StatementTimeout: 30,
	})

	mock.ExpectExec("SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY").
		WillReturnError(errors.New("boom"))

	ran := false
	err := mgr.WithConn(context.Background(), func(context.Context, *sqlx.Conn) error {
		ran = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, ran)
}

func TestTestConnection(t *testing.T) {
	mgr, mock := newMockManager(t, Config{
		URL:              "postgres://u@h:5432/db",
		StatementTimeout: 30,
	})

	mock.ExpectExec("SET statement_timeout = 30000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	assert.True(t, mgr.TestConnection(context.Background()))
}

func TestVersion(t *testing.T) {
	mgr, mock := newMockManager(t, Config{
		URL:              "postgres://u@h:5432/db",
		StatementTimeout: 30,
	})

	mock.ExpectExec("SET statement_timeout = 30000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version()").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 16.2"))

	version, err := mgr.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 16.2", version)
}

func TestClose_Idempotent(t *testing.T) {
	mgr, mock := newMockManager(t, Config{URL: "postgres://u@h:5432/db"})
	mock.ExpectClose()

	require.NoError(t, mgr.Close())
	require.NoError(t, mgr.Close())

	err := mgr.WithConn(context.Background(), func(context.Context, *sqlx.Conn) error { return nil })
	assert.ErrorIs(t, err, ErrNotInitialized)
}
