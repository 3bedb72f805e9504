// Package connection manages the pooled database engine: one pool per
// configured URL, with read-only and statement-timeout session directives
// applied on every checkout.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	// Database drivers registered for the three supported dialects.
	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
)

// ErrNotInitialized is returned by checkout before Initialize or after Close.
var ErrNotInitialized = errors.New("connection manager not initialized")

// Manager owns the pooled engine for one database URL.
type Manager struct {
	cfg     Config
	dialect dialect.Dialect
	log     *slog.Logger

	mu sync.Mutex
	db *sqlx.DB
}

// NewManager validates the configuration and builds an uninitialized manager.
func NewManager(cfg Config, log *slog.Logger) (*Manager, error) {
	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}
	d, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		dialect: d,
		log:     log.With("component", "connection", "dialect", d.String()),
	}, nil
}

// NewManagerWithDB wraps an already-open pool. The caller keeps ownership of
// driver selection; the manager still applies session directives per the
// configured dialect.
func NewManagerWithDB(cfg Config, db *sqlx.DB, log *slog.Logger) (*Manager, error) {
	m, err := NewManager(cfg, log)
	if err != nil {
		return nil, err
	}
	m.db = db
	return m, nil
}

// Config returns the validated configuration.
func (m *Manager) Config() Config { return m.cfg }

// Dialect returns the canonical dialect of the configured URL.
func (m *Manager) Dialect() dialect.Dialect { return m.dialect }

// Initialize opens the pool. Calling it twice is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return nil
	}

	dsn, err := BuildDSN(m.cfg.URL, m.dialect)
	if err != nil {
		return err
	}

	db, err := sqlx.Open(m.dialect.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("opening %s pool: %w", m.dialect, err)
	}
	db.SetMaxOpenConns(m.cfg.PoolSize + m.cfg.MaxOverflow)
	db.SetMaxIdleConns(m.cfg.PoolSize)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// Connection pre-validation: fail fast on unreachable databases.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("connecting to %s: %w", m.dialect, err)
	}

	m.db = db
	m.log.Info("pool initialized",
		"pool_size", m.cfg.PoolSize,
		"max_overflow", m.cfg.MaxOverflow,
		"read_only", m.cfg.ReadOnly)
	return nil
}

// Close releases the pool. Subsequent checkouts fail with ErrNotInitialized
// until Initialize is called again.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// WithConn checks a connection out of the pool, applies the dialect's
// read-only and statement-timeout directives, and runs fn. The connection is
// returned to the pool on every exit path, including panics and cancellation.
func (m *Manager) WithConn(ctx context.Context, fn func(ctx context.Context, conn *sqlx.Conn) error) error {
	m.mu.Lock()
	db := m.db
	m.mu.Unlock()
	if db == nil {
		return ErrNotInitialized
	}

	acquireCtx, cancel := context.WithTimeout(ctx, time.Duration(m.cfg.PoolTimeout)*time.Second)
	conn, err := db.Connx(acquireCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if m.cfg.ReadOnly {
		if err := m.setReadOnly(ctx, conn); err != nil {
			return err
		}
	}
	if m.cfg.StatementTimeout > 0 {
		if err := m.setStatementTimeout(ctx, conn); err != nil {
			return err
		}
	}

	return fn(ctx, conn)
}

// setReadOnly issues the dialect's read-only session directive. ClickHouse
// has no session directive; its read-only guarantee is defense-in-depth only,
// enforced upstream through user permissions.
func (m *Manager) setReadOnly(ctx context.Context, conn *sqlx.Conn) error {
	var stmt string
	switch m.dialect {
	case dialect.Postgres:
		stmt = "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY"
	case dialect.MySQL:
		stmt = "SET SESSION TRANSACTION READ ONLY"
	case dialect.ClickHouse:
		return nil
	}
	return m.exec(ctx, conn, stmt)
}

// setStatementTimeout issues the dialect's statement timeout directive. The
// timeout is enforced database-side, not as a client cancellation.
func (m *Manager) setStatementTimeout(ctx context.Context, conn *sqlx.Conn) error {
	var stmt string
	switch m.dialect {
	case dialect.Postgres:
		stmt = fmt.Sprintf("SET statement_timeout = %d", m.cfg.StatementTimeout*1000)
	case dialect.MySQL:
		stmt = fmt.Sprintf("SET SESSION max_execution_time = %d", m.cfg.StatementTimeout*1000)
	case dialect.ClickHouse:
		stmt = fmt.Sprintf("SET max_execution_time = %d", m.cfg.StatementTimeout)
	}
	return m.exec(ctx, conn, stmt)
}

func (m *Manager) exec(ctx context.Context, conn *sqlx.Conn, stmt string) error {
	if m.cfg.Echo {
		m.log.Debug("session directive", "sql", stmt)
	}
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("applying session directive %q: %w", stmt, err)
	}
	return nil
}

// TestConnection reports whether a trivial round trip succeeds.
func (m *Manager) TestConnection(ctx context.Context) bool {
	err := m.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		var one int
		return conn.GetContext(ctx, &one, "SELECT 1")
	})
	return err == nil
}

// versionQueries maps each dialect to its version-reporting expression.
var versionQueries = map[dialect.Dialect]string{
	dialect.Postgres:   "SELECT version()",
	dialect.MySQL:      "SELECT VERSION()",
	dialect.ClickHouse: "SELECT version()",
}

// Version returns the server version string.
func (m *Manager) Version(ctx context.Context) (string, error) {
	var version string
	err := m.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &version, versionQueries[m.dialect])
	})
	if err != nil {
		return "", fmt.Errorf("querying version: %w", err)
	}
	return version, nil
}
