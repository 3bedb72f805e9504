package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
)

func TestNew_AllDialects(t *testing.T) {
	for _, d := range []dialect.Dialect{dialect.Postgres, dialect.MySQL, dialect.ClickHouse} {
		ad, err := New(d, slog.Default())
		require.NoError(t, err, d)
		assert.Equal(t, d, ad.Dialect())
		assert.Equal(t, dialect.CapabilitiesFor(d), ad.Capabilities())
	}
}

func TestNew_UnknownDialect(t *testing.T) {
	_, err := New(dialect.Dialect("sqlite"), nil)
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, quoteIdent("users", `"`))
	assert.Equal(t, "`users`", quoteIdent("users", "`"))
	// Embedded quotes are doubled.
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`, `"`))
}

func TestTableRef(t *testing.T) {
	schema := "app"
	assert.Equal(t, `"app"."users"`, tableRef("users", &schema, `"`))
	assert.Equal(t, `"users"`, tableRef("users", nil, `"`))
	empty := ""
	assert.Equal(t, `"users"`, tableRef("users", &empty, `"`))
}

func TestIsNumericType(t *testing.T) {
	numeric := []string{
		"integer", "bigint", "smallint", "numeric(10,2)", "decimal",
		"double precision", "real", "Float64", "UInt32", "money", "serial",
	}
	for _, dt := range numeric {
		assert.True(t, isNumericType(dt), dt)
	}

	nonNumeric := []string{
		"text", "varchar(255)", "timestamp with time zone", "boolean",
		"uuid", "jsonb", "String", "DateTime",
	}
	for _, dt := range nonNumeric {
		assert.False(t, isNumericType(dt), dt)
	}
}

func TestGroupIndexRows(t *testing.T) {
	rows := []pgIndexRow{
		{IndexName: "users_email_key", Column: "email", Unique: true, Method: "btree"},
		{IndexName: "users_name_idx", Column: "last", Unique: false, Method: "btree"},
		{IndexName: "users_name_idx", Column: "first", Unique: false, Method: "btree"},
	}
	indexes := groupIndexRows(rows)
	require.Len(t, indexes, 2)
	assert.Equal(t, []string{"email"}, indexes[0].Columns)
	assert.True(t, indexes[0].Unique)
	assert.Equal(t, []string{"last", "first"}, indexes[1].Columns)
	assert.False(t, indexes[1].Unique)
}
