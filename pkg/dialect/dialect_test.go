package dialect

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		scheme string
		want   Dialect
	}{
		{"postgresql", Postgres},
		{"postgres", Postgres},
		{"pg", Postgres},
		{"postgresql+asyncpg", Postgres},
		{"mysql", MySQL},
		{"mariadb", MySQL},
		{"mysql+aiomysql", MySQL},
		{"mysql+pymysql", MySQL},
		{"clickhouse", ClickHouse},
		{"clickhousedb", ClickHouse},
		{"clickhouse+native", ClickHouse},
		{"clickhouse+http", ClickHouse},
		{"PostgreSQL", Postgres},
		{" mysql ", MySQL},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			got, err := Normalize(tt.scheme)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Unsupported(t *testing.T) {
	for _, scheme := range []string{"sqlite", "oracle", "mssql", ""} {
		_, err := Normalize(scheme)
		assert.Error(t, err, scheme)
	}
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "postgres", Postgres.DriverName())
	assert.Equal(t, "mysql", MySQL.DriverName())
	assert.Equal(t, "clickhouse", ClickHouse.DriverName())
}

func TestCapabilitiesFor_Postgres(t *testing.T) {
	caps := CapabilitiesFor(Postgres)
	assert.True(t, caps.ForeignKeys)
	assert.True(t, caps.MaterializedView)
	assert.True(t, caps.AdvancedStats)
	assert.True(t, caps.Profiling)
	assert.True(t, caps.Transactions)
}

func TestCapabilitiesFor_MySQL(t *testing.T) {
	caps := CapabilitiesFor(MySQL)
	assert.True(t, caps.ForeignKeys)
	assert.False(t, caps.MaterializedView)
	assert.False(t, caps.AdvancedStats)
	assert.False(t, caps.Profiling)
	assert.True(t, caps.ExplainPlans)
}

func TestCapabilitiesFor_ClickHouse(t *testing.T) {
	caps := CapabilitiesFor(ClickHouse)
	assert.False(t, caps.ForeignKeys)
	assert.False(t, caps.Transactions)
	assert.False(t, caps.StoredProcedures)
	assert.False(t, caps.Triggers)
	assert.True(t, caps.AdvancedStats)
	assert.True(t, caps.MaterializedView)
	assert.True(t, caps.Profiling)
}

func TestAsMap_CoversAllFlags(t *testing.T) {
	m := CapabilitiesFor(Postgres).AsMap()
	assert.Len(t, m, 13)
	for _, key := range []string{
		"foreign_keys", "indexes", "views", "materialized_views", "partitions",
		"advanced_stats", "explain_plans", "profiling", "comments", "schemas",
		"transactions", "stored_procedures", "triggers",
	} {
		_, ok := m[key]
		assert.True(t, ok, "missing capability key %s", key)
	}
}

func TestSupportedFeatures_Sorted(t *testing.T) {
	features := CapabilitiesFor(ClickHouse).SupportedFeatures()
	require.NotEmpty(t, features)
	assert.True(t, sort.StringsAreSorted(features))
	assert.NotContains(t, features, "foreign_keys")
	assert.Contains(t, features, "advanced_stats")
}

func TestIsSystemSchema(t *testing.T) {
	assert.True(t, IsSystemSchema(Postgres, "pg_catalog"))
	assert.True(t, IsSystemSchema(Postgres, "pg_toast"))
	assert.True(t, IsSystemSchema(Postgres, "information_schema"))
	assert.False(t, IsSystemSchema(Postgres, "public"))

	assert.True(t, IsSystemSchema(MySQL, "performance_schema"))
	assert.True(t, IsSystemSchema(MySQL, "sys"))
	assert.False(t, IsSystemSchema(MySQL, "app"))

	assert.True(t, IsSystemSchema(ClickHouse, "system"))
	assert.True(t, IsSystemSchema(ClickHouse, "INFORMATION_SCHEMA"))
	assert.False(t, IsSystemSchema(ClickHouse, "default"))
}
