// Package adapter implements the per-dialect operations behind the explorer:
// catalog reflection, descriptor enrichment, column statistics, value
// distributions, sampling, EXPLAIN generation and parsing, and database
// profiling. Exactly three implementations exist, selected once at
// configuration time; there is no dynamic registration.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
	"github.com/txn2/mcp-db-explorer/pkg/meta"
)

// ForeignKey is the reflected shape of one foreign key constraint.
type ForeignKey struct {
	Name            string
	Columns         []string
	ReferredTable   string
	ReferredSchema  *string
	ReferredColumns []string
	OnDelete        *string
	OnUpdate        *string
}

// PlanInfo is the adapter-parsed portion of an explain plan. Parsing never
// fails; malformed plan text yields an empty-but-valid PlanInfo with a
// warning.
type PlanInfo struct {
	JSON            any
	PlanText        string
	EstimatedCost   *float64
	EstimatedRows   *int64
	ActualTimeMS    *float64
	ActualRows      *int64
	Warnings        []string
	Recommendations []string
}

// Adapter is the capability-gated, per-dialect implementation surface.
// Catalog methods tolerate "not supported" by returning empty lists, not
// errors.
type Adapter interface {
	Dialect() dialect.Dialect
	Capabilities() dialect.Capabilities

	// Catalog reflection.
	SchemaNames(ctx context.Context, conn *sqlx.Conn) ([]string, error)
	TableNames(ctx context.Context, conn *sqlx.Conn, schema *string) ([]string, error)
	ViewNames(ctx context.Context, conn *sqlx.Conn, schema *string) ([]string, error)
	Columns(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ColumnInfo, error)
	PrimaryKeyColumns(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]string, error)
	Indexes(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.IndexInfo, error)
	ForeignKeys(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]ForeignKey, error)
	UniqueConstraints(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ConstraintInfo, error)
	CheckConstraints(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ConstraintInfo, error)

	// Enrichment with dialect-specific facts. Failures downgrade to log
	// warnings; the descriptor stays usable.
	EnrichSchema(ctx context.Context, conn *sqlx.Conn, info *meta.SchemaInfo)
	EnrichTable(ctx context.Context, conn *sqlx.Conn, info *meta.TableInfo)

	// Statistics. ColumnStatistics never returns an error: query failures
	// produce a zeroed shape with a warning.
	ColumnStatistics(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string) meta.ColumnStats
	ValueDistribution(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string, limit int) (meta.Distribution, error)

	// Query generation and plan parsing.
	SampleQuery(table string, schema *string, limit int) string
	ExplainQuery(query string, analyze bool) string
	ParseExplainPlan(planText string, analyzed bool) PlanInfo

	ProfileDatabase(ctx context.Context, conn *sqlx.Conn, databaseName string) (*meta.DatabaseProfile, error)
}

// constructors is the table-driven dispatch from canonical dialect to
// adapter constructor.
var constructors = map[dialect.Dialect]func(log *slog.Logger) Adapter{
	dialect.Postgres:   func(log *slog.Logger) Adapter { return newPostgres(log) },
	dialect.MySQL:      func(log *slog.Logger) Adapter { return newMySQL(log) },
	dialect.ClickHouse: func(log *slog.Logger) Adapter { return newClickHouse(log) },
}

// New returns the adapter for a canonical dialect.
func New(d dialect.Dialect, log *slog.Logger) (Adapter, error) {
	ctor, ok := constructors[d]
	if !ok {
		return nil, fmt.Errorf("no adapter for dialect %q", d)
	}
	if log == nil {
		log = slog.Default()
	}
	return ctor(log.With("component", "adapter", "dialect", d.String())), nil
}

// quoteIdent quotes one identifier with the given quote rune, doubling any
// embedded quotes.
func quoteIdent(name string, quote string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

// tableRef builds a quoted, optionally schema-qualified table reference.
func tableRef(table string, schema *string, quote string) string {
	if schema != nil && *schema != "" {
		return quoteIdent(*schema, quote) + "." + quoteIdent(table, quote)
	}
	return quoteIdent(table, quote)
}

// numericTypeFragments identify numeric column types across the three
// dialects' type names.
var numericTypeFragments = []string{
	"int", "serial", "numeric", "decimal", "real", "double", "float", "money",
}

// isNumericType reports whether a reported data type supports numeric
// aggregates such as AVG and percentiles.
func isNumericType(dataType string) bool {
	lower := strings.ToLower(dataType)
	for _, fragment := range numericTypeFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// mostCommonLimit caps the most-frequent-value list on column statistics.
const mostCommonLimit = 10

// profileTableLimit caps the largest-tables list on database profiles.
const profileTableLimit = 20

// scanValueCounts reads (value, count) rows into a ValueCount list,
// stringifying values for cross-dialect consistency.
func scanValueCounts(rows *sqlx.Rows) ([]meta.ValueCount, error) {
	out := []meta.ValueCount{}
	for rows.Next() {
		var value any
		var count int64
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		out = append(out, meta.ValueCount{Value: stringifyValue(value), Count: count})
	}
	return out, rows.Err()
}

func stringifyValue(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

func strPtr(s string) *string   { return &s }
func i64Ptr(n int64) *int64     { return &n }
func f64Ptr(f float64) *float64 { return &f }

// usableFloat reports whether a scanned aggregate is a representable JSON
// number. ClickHouse returns NaN (not NULL) for avg/stddev/quantile over zero
// rows, and NaN scans as a valid float64.
func usableFloat(f sql.NullFloat64) bool {
	return f.Valid && !math.IsNaN(f.Float64) && !math.IsInf(f.Float64, 0)
}
