//go:build integration

package integration

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/txn2/mcp-db-explorer/pkg/adapter"
	"github.com/txn2/mcp-db-explorer/pkg/analyzer"
	"github.com/txn2/mcp-db-explorer/pkg/connection"
	"github.com/txn2/mcp-db-explorer/pkg/executor"
	"github.com/txn2/mcp-db-explorer/pkg/inspector"
)

const seedSchema = `
CREATE TABLE orgs (
    id   SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);
CREATE TABLE users (
    id     SERIAL PRIMARY KEY,
    org_id INTEGER REFERENCES orgs (id) ON DELETE CASCADE,
    email  TEXT NOT NULL,
    age    INTEGER
);
CREATE INDEX users_org_idx ON users (org_id);
INSERT INTO orgs (name) VALUES ('acme'), ('globex');
INSERT INTO users (org_id, email, age)
SELECT 1 + (n % 2), 'user' || n || '@example.com', 20 + (n % 40)
FROM generate_series(1, 200) AS n;
`

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	url, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("postgres", url)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, seedSchema)
	require.NoError(t, err, "failed to seed schema")

	return url
}

func TestExplorer_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	url := startPostgres(t)

	mgr, err := connection.NewManager(connection.Config{URL: url, ReadOnly: true}, slog.Default())
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize(ctx))
	defer mgr.Close()

	ad, err := adapter.New(mgr.Dialect(), slog.Default())
	require.NoError(t, err)

	t.Run("schema listing", func(t *testing.T) {
		insp := inspector.New(mgr, ad, slog.Default())
		schemas, err := insp.GetSchemas(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(schemas))
		for _, s := range schemas {
			names = append(names, s.Name)
		}
		assert.Contains(t, names, "public")
		assert.NotContains(t, names, "pg_catalog")
		assert.NotContains(t, names, "information_schema")
	})

	t.Run("table description markers", func(t *testing.T) {
		insp := inspector.New(mgr, ad, slog.Default())
		info, err := insp.DescribeTable(ctx, "users", nil)
		require.NoError(t, err)

		id := info.Column("id")
		require.NotNil(t, id)
		assert.True(t, id.PrimaryKey)

		orgID := info.Column("org_id")
		require.NotNil(t, orgID)
		assert.True(t, orgID.Indexed)
		require.NotNil(t, orgID.ForeignKey)
		assert.Equal(t, "orgs.id", *orgID.ForeignKey)

		require.NotNil(t, info.SizeBytes)
	})

	t.Run("relationships", func(t *testing.T) {
		insp := inspector.New(mgr, ad, slog.Default())
		relationships, err := insp.GetRelationships(ctx, nil)
		require.NoError(t, err)
		require.NotEmpty(t, relationships)
		found := false
		for _, rel := range relationships {
			if rel.FromTable == "users" && rel.ToTable == "orgs" {
				found = true
				require.NotNil(t, rel.OnDelete)
				assert.Equal(t, "CASCADE", *rel.OnDelete)
			}
		}
		assert.True(t, found, "users -> orgs relationship not mapped")
	})

	t.Run("query execution with limit", func(t *testing.T) {
		exec := executor.New(mgr, ad, slog.Default())
		result, err := exec.Execute(ctx, "SELECT id, email FROM users ORDER BY id", 10)
		require.NoError(t, err)
		assert.Equal(t, 10, result.RowCount)
		assert.True(t, result.Truncated)
		assert.Equal(t, []string{"id", "email"}, result.Columns)
	})

	t.Run("mutations rejected before execution", func(t *testing.T) {
		exec := executor.New(mgr, ad, slog.Default())
		_, err := exec.Execute(ctx, "DELETE FROM users", 0)
		require.Error(t, err)
	})

	t.Run("session is read only", func(t *testing.T) {
		err := mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
			_, err := conn.ExecContext(ctx, "INSERT INTO orgs (name) VALUES ('evil')")
			return err
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read-only")
	})

	t.Run("column statistics", func(t *testing.T) {
		an := analyzer.New(mgr, ad, slog.Default())
		stats, err := an.AnalyzeColumn(ctx, "users", "age", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(200), stats.TotalRows)
		assert.True(t, stats.HasAdvancedStats())
		assert.NotNil(t, stats.MedianValue)
		assert.NotEmpty(t, stats.MostCommonValues)
	})

	t.Run("explain plan", func(t *testing.T) {
		exec := executor.New(mgr, ad, slog.Default())
		plan, err := exec.Explain(ctx, "SELECT * FROM users WHERE age > 30", false)
		require.NoError(t, err)
		assert.NotEmpty(t, plan.Plan)
		require.NotNil(t, plan.EstimatedCost)
	})

	t.Run("sample data", func(t *testing.T) {
		exec := executor.New(mgr, ad, slog.Default())
		result, err := exec.SampleData(ctx, "users", nil, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, result.RowCount)
	})
}
