package inspector

import (
	"context"
	"log/slog"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-db-explorer/pkg/adapter"
	"github.com/txn2/mcp-db-explorer/pkg/connection"
	"github.com/txn2/mcp-db-explorer/pkg/dialect"
)

func newMockInspector(t *testing.T, d dialect.Dialect, url string) (*Inspector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mgr, err := connection.NewManagerWithDB(
		connection.Config{URL: url},
		sqlx.NewDb(db, "sqlmock"),
		slog.Default(),
	)
	require.NoError(t, err)

	ad, err := adapter.New(d, slog.Default())
	require.NoError(t, err)
	return New(mgr, ad, slog.Default()), mock
}

func expectPostgresDirectives(mock sqlmock.Sqlmock) {
	mock.ExpectExec("SET statement_timeout = 30000").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestGetRelationships_CapabilityShortCircuit(t *testing.T) {
	insp, mock := newMockInspector(t, dialect.ClickHouse, "clickhouse://u@h:9000/events")

	// No expectations registered: the dialect lacks foreign keys, so not a
	// single query may be issued.
	relationships, err := insp.GetRelationships(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, relationships)
	assert.NotNil(t, relationships)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTables(t *testing.T) {
	insp, mock := newMockInspector(t, dialect.Postgres, "postgres://u@h:5432/db")

	expectPostgresDirectives(mock)
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("orders").AddRow("users"))
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("active_users"))

	listing, err := insp.GetTables(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, listing.Tables)
	assert.Equal(t, []string{"active_users"}, listing.Views)
	assert.Equal(t, 3, listing.Count)
}

func TestGetTables_WithoutViews(t *testing.T) {
	insp, mock := newMockInspector(t, dialect.Postgres, "postgres://u@h:5432/db")

	expectPostgresDirectives(mock)
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))

	listing, err := insp.GetTables(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Count)
	assert.Empty(t, listing.Views)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeTable_CrossReferencesMarkers(t *testing.T) {
	insp, mock := newMockInspector(t, dialect.Postgres, "postgres://u@h:5432/db")

	expectPostgresDirectives(mock)

	columnHeaders := []string{
		"column_name", "data_type", "is_nullable", "column_default",
		"character_maximum_length", "numeric_precision", "numeric_scale", "comment",
	}
	mock.ExpectQuery("SELECT c.column_name").
		WillReturnRows(sqlmock.NewRows(columnHeaders).
			AddRow("id", "integer", "NO", "nextval('users_id_seq')", nil, 32, 0, nil).
			AddRow("email", "character varying", "NO", nil, 255, nil, nil, nil).
			AddRow("org_id", "integer", "YES", nil, nil, 32, 0, nil))

	// Primary key.
	mock.ExpectQuery("SELECT kcu.column_name").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	// Indexes.
	mock.ExpectQuery("SELECT i.relname AS index_name").
		WillReturnRows(sqlmock.NewRows([]string{"index_name", "column_name", "is_unique", "index_method"}).
			AddRow("users_email_key", "email", true, "btree"))

	// Foreign keys.
	mock.ExpectQuery("referred_schema").
		WillReturnRows(sqlmock.NewRows([]string{
			"constraint_name", "column_name", "referred_schema", "referred_table",
			"referred_column", "delete_rule", "update_rule",
		}).AddRow("users_org_fk", "org_id", "public", "orgs", "id", "CASCADE", "NO ACTION"))

	// Unique constraints.
	mock.ExpectQuery("constraint_type = 'UNIQUE'").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("users_email_uq", "email"))

	// Check constraints.
	mock.ExpectQuery("check_clause").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "check_clause"}).
			AddRow("users_email_nonempty", "length(email) > 0"))

	// Enrichment: sizes and class extras.
	mock.ExpectQuery("pg_total_relation_size").
		WillReturnRows(sqlmock.NewRows([]string{"total_size", "table_size", "indexes_size", "row_count", "comment"}).
			AddRow(16384, 8192, 8192, 420, "user accounts"))
	mock.ExpectQuery("relispartition").
		WillReturnRows(sqlmock.NewRows([]string{"relkind", "relpersistence", "relispartition"}).
			AddRow("r", "p", false))

	info, err := insp.DescribeTable(context.Background(), "users", nil)
	require.NoError(t, err)
	require.Len(t, info.Columns, 3)

	id := info.Column("id")
	require.NotNil(t, id)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.Indexed)

	email := info.Column("email")
	require.NotNil(t, email)
	assert.True(t, email.Unique)
	assert.True(t, email.Indexed)
	assert.False(t, email.PrimaryKey)

	orgID := info.Column("org_id")
	require.NotNil(t, orgID)
	require.NotNil(t, orgID.ForeignKey)
	assert.Equal(t, "orgs.id", *orgID.ForeignKey)

	// PRIMARY KEY + FOREIGN KEY + UNIQUE + CHECK.
	assert.Len(t, info.Constraints, 4)

	require.NotNil(t, info.RowCount)
	assert.Equal(t, int64(420), *info.RowCount)
	require.NotNil(t, info.Comment)
	assert.Equal(t, "user accounts", *info.Comment)
	assert.Equal(t, "r", info.ExtraInfo["relkind"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeTable_NotFound(t *testing.T) {
	insp, mock := newMockInspector(t, dialect.Postgres, "postgres://u@h:5432/db")

	expectPostgresDirectives(mock)
	mock.ExpectQuery("SELECT c.column_name").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "data_type", "is_nullable", "column_default",
			"character_maximum_length", "numeric_precision", "numeric_scale", "comment",
		}))

	_, err := insp.DescribeTable(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetSchemas_FiltersSystemSchemas(t *testing.T) {
	insp, mock := newMockInspector(t, dialect.Postgres, "postgres://u@h:5432/db")

	expectPostgresDirectives(mock)
	mock.ExpectQuery("SELECT schema_name FROM information_schema.schemata").
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).
			AddRow("information_schema").
			AddRow("pg_catalog").
			AddRow("public"))

	// Only "public" survives the filter; its counts and enrichment follow.
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users").AddRow("orders"))
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("v_active"))
	mock.ExpectQuery("pg_get_userbyid").
		WillReturnRows(sqlmock.NewRows([]string{"owner", "comment"}).AddRow("app_owner", nil))
	mock.ExpectQuery("SUM\\(pg_total_relation_size").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(1048576))

	schemas, err := insp.GetSchemas(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "public", schemas[0].Name)
	require.NotNil(t, schemas[0].TableCount)
	assert.Equal(t, int64(2), *schemas[0].TableCount)
	require.NotNil(t, schemas[0].ViewCount)
	assert.Equal(t, int64(1), *schemas[0].ViewCount)
	require.NotNil(t, schemas[0].Owner)
	assert.Equal(t, "app_owner", *schemas[0].Owner)
	require.NotNil(t, schemas[0].SizeBytes)
	assert.Equal(t, int64(1048576), *schemas[0].SizeBytes)
}

func TestGetRelationships_Postgres(t *testing.T) {
	insp, mock := newMockInspector(t, dialect.Postgres, "postgres://u@h:5432/db")

	expectPostgresDirectives(mock)
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))
	mock.ExpectQuery("referred_schema").
		WillReturnRows(sqlmock.NewRows([]string{
			"constraint_name", "column_name", "referred_schema", "referred_table",
			"referred_column", "delete_rule", "update_rule",
		}).AddRow("orders_user_fk", "user_id", "public", "users", "id", "RESTRICT", "NO ACTION"))

	relationships, err := insp.GetRelationships(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, relationships, 1)
	rel := relationships[0]
	assert.Equal(t, "orders", rel.FromTable)
	assert.Equal(t, []string{"user_id"}, rel.FromColumns)
	assert.Equal(t, "users", rel.ToTable)
	assert.Equal(t, []string{"id"}, rel.ToColumns)
	assert.Equal(t, "orders_user_fk", rel.ConstraintName)
	require.NotNil(t, rel.OnDelete)
	assert.Equal(t, "RESTRICT", *rel.OnDelete)
}
