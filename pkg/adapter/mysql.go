package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
	"github.com/txn2/mcp-db-explorer/pkg/jsonsafe"
	"github.com/txn2/mcp-db-explorer/pkg/meta"
)

// mysql is the mid-capability adapter: full catalog reflection but no
// percentile statistics and no materialized views.
type mysql struct {
	log  *slog.Logger
	caps dialect.Capabilities
}

func newMySQL(log *slog.Logger) *mysql {
	return &mysql{log: log, caps: dialect.CapabilitiesFor(dialect.MySQL)}
}

func (m *mysql) Dialect() dialect.Dialect           { return dialect.MySQL }
func (m *mysql) Capabilities() dialect.Capabilities { return m.caps }

func (m *mysql) ref(table string, schema *string) string {
	return tableRef(table, schema, "`")
}

// schemaExpr yields the SQL expression selecting the target schema: the bound
// name when given, otherwise the session's current database.
func schemaExpr(schema *string) (string, []any) {
	if schema != nil && *schema != "" {
		return "?", []any{*schema}
	}
	return "DATABASE()", nil
}

func (m *mysql) SchemaNames(ctx context.Context, conn *sqlx.Conn) ([]string, error) {
	var names []string
	err := conn.SelectContext(ctx, &names,
		`SELECT schema_name FROM information_schema.schemata ORDER BY schema_name`)
	return names, err
}

func (m *mysql) TableNames(ctx context.Context, conn *sqlx.Conn, schema *string) ([]string, error) {
	return m.relationNames(ctx, conn, schema, "BASE TABLE")
}

func (m *mysql) ViewNames(ctx context.Context, conn *sqlx.Conn, schema *string) ([]string, error) {
	return m.relationNames(ctx, conn, schema, "VIEW")
}

func (m *mysql) relationNames(ctx context.Context, conn *sqlx.Conn, schema *string, tableType string) ([]string, error) {
	expr, args := schemaExpr(schema)
	args = append(args, tableType)
	var names []string
	err := conn.SelectContext(ctx, &names, fmt.Sprintf(
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = %s AND table_type = ? ORDER BY table_name`, expr), args...)
	return names, err
}

type mysqlColumnRow struct {
	Name      string         `db:"column_name"`
	DataType  string         `db:"column_type"`
	Nullable  string         `db:"is_nullable"`
	Default   sql.NullString `db:"column_default"`
	MaxLength sql.NullInt64  `db:"character_maximum_length"`
	Precision sql.NullInt64  `db:"numeric_precision"`
	Scale     sql.NullInt64  `db:"numeric_scale"`
	Comment   sql.NullString `db:"column_comment"`
}

func (m *mysql) Columns(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ColumnInfo, error) {
	expr, args := schemaExpr(schema)
	args = append(args, table)
	var rows []mysqlColumnRow
	err := conn.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT column_name, column_type, is_nullable, column_default,
		       character_maximum_length, numeric_precision, numeric_scale,
		       column_comment
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = ?
		ORDER BY ordinal_position`, expr), args...)
	if err != nil {
		return nil, fmt.Errorf("reflecting columns of %s: %w", table, err)
	}

	columns := make([]meta.ColumnInfo, 0, len(rows))
	for _, r := range rows {
		col := meta.ColumnInfo{
			Name:     r.Name,
			DataType: r.DataType,
			Nullable: r.Nullable == "YES",
		}
		if r.Default.Valid {
			col.Default = strPtr(r.Default.String)
		}
		if r.MaxLength.Valid {
			col.MaxLength = i64Ptr(r.MaxLength.Int64)
		}
		if r.Precision.Valid {
			col.Precision = i64Ptr(r.Precision.Int64)
		}
		if r.Scale.Valid {
			col.Scale = i64Ptr(r.Scale.Int64)
		}
		if r.Comment.Valid && r.Comment.String != "" {
			col.Comment = strPtr(r.Comment.String)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (m *mysql) PrimaryKeyColumns(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]string, error) {
	expr, args := schemaExpr(schema)
	args = append(args, table)
	var names []string
	err := conn.SelectContext(ctx, &names, fmt.Sprintf(`
		SELECT column_name FROM information_schema.key_column_usage
		WHERE table_schema = %s AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, expr), args...)
	return names, err
}

type mysqlIndexRow struct {
	IndexName string `db:"index_name"`
	Column    string `db:"column_name"`
	NonUnique int64  `db:"non_unique"`
	IndexType string `db:"index_type"`
}

func (m *mysql) Indexes(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.IndexInfo, error) {
	expr, args := schemaExpr(schema)
	args = append(args, table)
	var rows []mysqlIndexRow
	err := conn.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT index_name, column_name, non_unique, index_type
		FROM information_schema.statistics
		WHERE table_schema = %s AND table_name = ? AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index`, expr), args...)
	if err != nil {
		return nil, fmt.Errorf("reflecting indexes of %s: %w", table, err)
	}

	indexes := []meta.IndexInfo{}
	byName := map[string]int{}
	for _, r := range rows {
		if i, ok := byName[r.IndexName]; ok {
			indexes[i].Columns = append(indexes[i].Columns, r.Column)
			continue
		}
		byName[r.IndexName] = len(indexes)
		indexType := r.IndexType
		indexes = append(indexes, meta.IndexInfo{
			Name:      r.IndexName,
			Columns:   []string{r.Column},
			Unique:    r.NonUnique == 0,
			IndexType: &indexType,
		})
	}
	return indexes, nil
}

type mysqlForeignKeyRow struct {
	Name           string         `db:"constraint_name"`
	Column         string         `db:"column_name"`
	ReferredSchema sql.NullString `db:"referenced_table_schema"`
	ReferredTable  sql.NullString `db:"referenced_table_name"`
	ReferredColumn sql.NullString `db:"referenced_column_name"`
	DeleteRule     sql.NullString `db:"delete_rule"`
	UpdateRule     sql.NullString `db:"update_rule"`
}

func (m *mysql) ForeignKeys(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]ForeignKey, error) {
	expr, args := schemaExpr(schema)
	args = append(args, table)
	var rows []mysqlForeignKeyRow
	err := conn.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT kcu.constraint_name, kcu.column_name,
		       kcu.referenced_table_schema, kcu.referenced_table_name,
		       kcu.referenced_column_name,
		       rc.delete_rule, rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_name = kcu.constraint_name
		 AND rc.constraint_schema = kcu.table_schema
		WHERE kcu.table_schema = %s AND kcu.table_name = ?
		  AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`, expr), args...)
	if err != nil {
		return nil, fmt.Errorf("reflecting foreign keys of %s: %w", table, err)
	}

	fks := []ForeignKey{}
	byName := map[string]int{}
	for _, r := range rows {
		if i, ok := byName[r.Name]; ok {
			fks[i].Columns = append(fks[i].Columns, r.Column)
			fks[i].ReferredColumns = append(fks[i].ReferredColumns, r.ReferredColumn.String)
			continue
		}
		byName[r.Name] = len(fks)
		fk := ForeignKey{
			Name:            r.Name,
			Columns:         []string{r.Column},
			ReferredTable:   r.ReferredTable.String,
			ReferredColumns: []string{r.ReferredColumn.String},
		}
		if r.ReferredSchema.Valid {
			fk.ReferredSchema = strPtr(r.ReferredSchema.String)
		}
		if r.DeleteRule.Valid {
			fk.OnDelete = strPtr(r.DeleteRule.String)
		}
		if r.UpdateRule.Valid {
			fk.OnUpdate = strPtr(r.UpdateRule.String)
		}
		fks = append(fks, fk)
	}
	return fks, nil
}

func (m *mysql) UniqueConstraints(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ConstraintInfo, error) {
	expr, args := schemaExpr(schema)
	args = append(args, table)
	var rows []struct {
		Name   string `db:"constraint_name"`
		Column string `db:"column_name"`
	}
	err := conn.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		 AND kcu.table_name = tc.table_name
		WHERE tc.constraint_type = 'UNIQUE'
		  AND tc.table_schema = %s AND tc.table_name = ?
		ORDER BY tc.constraint_name, kcu.ordinal_position`, expr), args...)
	if err != nil {
		return nil, fmt.Errorf("reflecting unique constraints of %s: %w", table, err)
	}

	constraints := []meta.ConstraintInfo{}
	byName := map[string]int{}
	for _, r := range rows {
		if i, ok := byName[r.Name]; ok {
			constraints[i].Columns = append(constraints[i].Columns, r.Column)
			continue
		}
		byName[r.Name] = len(constraints)
		constraints = append(constraints, meta.ConstraintInfo{
			Name:           r.Name,
			ConstraintType: "UNIQUE",
			Columns:        []string{r.Column},
		})
	}
	return constraints, nil
}

func (m *mysql) CheckConstraints(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ConstraintInfo, error) {
	expr, args := schemaExpr(schema)
	args = append(args, table)
	var rows []struct {
		Name       string `db:"constraint_name"`
		CheckClause string `db:"check_clause"`
	}
	err := conn.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT cc.constraint_name, cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
		  ON cc.constraint_name = tc.constraint_name
		 AND cc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'CHECK'
		  AND tc.table_schema = %s AND tc.table_name = ?
		ORDER BY cc.constraint_name`, expr), args...)
	if err != nil {
		// Absent on MySQL < 8.0.16; empty, not fatal.
		return []meta.ConstraintInfo{}, nil
	}

	constraints := make([]meta.ConstraintInfo, 0, len(rows))
	for _, r := range rows {
		def := r.CheckClause
		constraints = append(constraints, meta.ConstraintInfo{
			Name:           r.Name,
			ConstraintType: "CHECK",
			Columns:        []string{},
			Definition:     &def,
		})
	}
	return constraints, nil
}

func (m *mysql) EnrichSchema(ctx context.Context, conn *sqlx.Conn, info *meta.SchemaInfo) {
	var size sql.NullInt64
	err := conn.GetContext(ctx, &size, `
		SELECT CAST(SUM(data_length + index_length) AS SIGNED)
		FROM information_schema.tables WHERE table_schema = ?`, info.Name)
	if err != nil {
		m.log.Warn("schema enrichment skipped", "schema", info.Name, "error", err)
		return
	}
	if size.Valid {
		info.SizeBytes = i64Ptr(size.Int64)
	}
}

type mysqlTableFacts struct {
	Engine      sql.NullString `db:"engine"`
	Rows        sql.NullInt64  `db:"table_rows"`
	DataLength  sql.NullInt64  `db:"data_length"`
	IndexLength sql.NullInt64  `db:"index_length"`
	Comment     sql.NullString `db:"table_comment"`
	CreateTime  sql.NullTime   `db:"create_time"`
	UpdateTime  sql.NullTime   `db:"update_time"`
}

func (m *mysql) EnrichTable(ctx context.Context, conn *sqlx.Conn, info *meta.TableInfo) {
	expr, args := schemaExpr(info.Schema)
	args = append(args, info.Name)
	var facts mysqlTableFacts
	err := conn.GetContext(ctx, &facts, fmt.Sprintf(`
		SELECT engine, table_rows, data_length, index_length, table_comment,
		       create_time, update_time
		FROM information_schema.tables
		WHERE table_schema = %s AND table_name = ?`, expr), args...)
	if err != nil {
		m.log.Warn("table enrichment skipped", "table", info.Name, "error", err)
		return
	}

	if facts.Rows.Valid {
		info.RowCount = i64Ptr(facts.Rows.Int64)
	}
	if facts.DataLength.Valid {
		info.SizeBytes = i64Ptr(facts.DataLength.Int64)
	}
	if facts.IndexLength.Valid {
		info.IndexSizeBytes = i64Ptr(facts.IndexLength.Int64)
	}
	if facts.Comment.Valid && facts.Comment.String != "" {
		info.Comment = strPtr(facts.Comment.String)
	}
	if facts.CreateTime.Valid {
		info.CreatedAt = strPtr(facts.CreateTime.Time.Format(time.RFC3339))
	}
	if facts.UpdateTime.Valid {
		info.UpdatedAt = strPtr(facts.UpdateTime.Time.Format(time.RFC3339))
	}
	if facts.Engine.Valid {
		if info.ExtraInfo == nil {
			info.ExtraInfo = map[string]any{}
		}
		info.ExtraInfo["engine"] = facts.Engine.String
	}
}

func (m *mysql) columnDataType(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string) string {
	expr, args := schemaExpr(schema)
	args = append(args, table, column)
	var dataType string
	err := conn.GetContext(ctx, &dataType, fmt.Sprintf(`
		SELECT data_type FROM information_schema.columns
		WHERE table_schema = %s AND table_name = ? AND column_name = ?`, expr), args...)
	if err != nil {
		return "unknown"
	}
	return dataType
}

const mysqlStatsWarning = "Advanced statistics (percentiles) not available in MySQL"

func (m *mysql) ColumnStatistics(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string) meta.ColumnStats {
	ref := m.ref(table, schema)
	col := quoteIdent(column, "`")
	dataType := m.columnDataType(ctx, conn, table, column, schema)
	numeric := isNumericType(dataType)

	var query string
	if numeric {
		query = fmt.Sprintf(`
			SELECT COUNT(*) AS total_rows,
			       COUNT(*) - COUNT(%[1]s) AS null_count,
			       COUNT(DISTINCT %[1]s) AS distinct_count,
			       CAST(MIN(%[1]s) AS CHAR) AS min_val,
			       CAST(MAX(%[1]s) AS CHAR) AS max_val,
			       AVG(%[1]s) AS avg_val,
			       STD(%[1]s) AS stddev_val
			FROM %[2]s`, col, ref)
	} else {
		query = fmt.Sprintf(`
			SELECT COUNT(*) AS total_rows,
			       COUNT(*) - COUNT(%[1]s) AS null_count,
			       COUNT(DISTINCT %[1]s) AS distinct_count,
			       CAST(MIN(%[1]s) AS CHAR) AS min_val,
			       CAST(MAX(%[1]s) AS CHAR) AS max_val,
			       NULL AS avg_val,
			       NULL AS stddev_val
			FROM %[2]s`, col, ref)
	}

	var row struct {
		TotalRows     int64           `db:"total_rows"`
		NullCount     int64           `db:"null_count"`
		DistinctCount sql.NullInt64   `db:"distinct_count"`
		Min           sql.NullString  `db:"min_val"`
		Max           sql.NullString  `db:"max_val"`
		Avg           sql.NullFloat64 `db:"avg_val"`
		Stddev        sql.NullFloat64 `db:"stddev_val"`
	}
	if err := conn.GetContext(ctx, &row, query); err != nil {
		return meta.ErrorStats(column, fmt.Sprintf("Statistics unavailable: %v", err))
	}

	warning := mysqlStatsWarning
	stats := meta.ColumnStats{
		Column:           column,
		DataType:         dataType,
		TotalRows:        row.TotalRows,
		NullCount:        row.NullCount,
		SampleSize:       row.TotalRows,
		MostCommonValues: []meta.ValueCount{},
		Warning:          &warning,
	}
	if row.DistinctCount.Valid {
		stats.DistinctCount = i64Ptr(row.DistinctCount.Int64)
	}
	if row.Min.Valid {
		stats.MinValue = jsonsafe.Value(row.Min.String)
	}
	if row.Max.Valid {
		stats.MaxValue = jsonsafe.Value(row.Max.String)
	}
	if usableFloat(row.Avg) {
		stats.AvgValue = f64Ptr(row.Avg.Float64)
	}
	if usableFloat(row.Stddev) {
		stats.StddevValue = f64Ptr(row.Stddev.Float64)
	}

	mcv, err := m.mostCommonValues(ctx, conn, ref, col)
	if err != nil {
		stats.Warning = strPtr(fmt.Sprintf("%s; most common values unavailable: %v", mysqlStatsWarning, err))
		return stats
	}
	stats.MostCommonValues = mcv
	return stats
}

func (m *mysql) mostCommonValues(ctx context.Context, conn *sqlx.Conn, ref, col string) ([]meta.ValueCount, error) {
	query, args, err := sq.Select("CAST("+col+" AS CHAR) AS value", "COUNT(*) AS count").
		From(ref).
		Where(col + " IS NOT NULL").
		GroupBy(col).
		OrderBy("count DESC").
		Limit(mostCommonLimit).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanValueCounts(rows)
}

func (m *mysql) ValueDistribution(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string, limit int) (meta.Distribution, error) {
	ref := m.ref(table, schema)
	col := quoteIdent(column, "`")

	var stats struct {
		TotalRows    int64 `db:"total_rows"`
		UniqueValues int64 `db:"unique_values"`
		NullCount    int64 `db:"null_count"`
	}
	statsQuery := fmt.Sprintf(`
		SELECT COUNT(*) AS total_rows,
		       COUNT(DISTINCT %[1]s) AS unique_values,
		       COUNT(*) - COUNT(%[1]s) AS null_count
		FROM %[2]s`, col, ref)
	if err := conn.GetContext(ctx, &stats, statsQuery); err != nil {
		return meta.Distribution{}, fmt.Errorf("distribution counts for %s: %w", column, err)
	}

	topQuery, args, err := sq.Select("CAST("+col+" AS CHAR) AS value", "COUNT(*) AS count").
		From(ref).
		Where(col + " IS NOT NULL").
		GroupBy(col).
		OrderBy("count DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return meta.Distribution{}, err
	}
	rows, err := conn.QueryxContext(ctx, topQuery, args...)
	if err != nil {
		return meta.Distribution{}, fmt.Errorf("distribution top values for %s: %w", column, err)
	}
	defer rows.Close()
	top, err := scanValueCounts(rows)
	if err != nil {
		return meta.Distribution{}, err
	}

	return meta.Distribution{
		Column:       column,
		TotalRows:    stats.TotalRows,
		UniqueValues: stats.UniqueValues,
		NullCount:    stats.NullCount,
		TopValues:    top,
		SampleSize:   stats.TotalRows,
	}, nil
}

func (m *mysql) SampleQuery(table string, schema *string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", m.ref(table, schema), limit)
}

// ExplainQuery returns JSON-format EXPLAIN for estimates; EXPLAIN ANALYZE
// emits tree text, there is no JSON variant for it.
func (m *mysql) ExplainQuery(query string, analyze bool) string {
	if analyze {
		return "EXPLAIN ANALYZE " + query
	}
	return "EXPLAIN FORMAT=JSON " + query
}

func (m *mysql) ParseExplainPlan(planText string, analyzed bool) PlanInfo {
	info := PlanInfo{PlanText: planText, Warnings: []string{}, Recommendations: []string{}}
	if analyzed {
		// Tree text output; pass through untouched.
		return info
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(planText), &parsed); err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("Could not parse EXPLAIN output as JSON: %v", err))
		return info
	}
	info.JSON = parsed

	block, _ := parsed["query_block"].(map[string]any)
	if block == nil {
		return info
	}
	if costInfo, ok := block["cost_info"].(map[string]any); ok {
		// MySQL reports query_cost as a string.
		if costStr, ok := costInfo["query_cost"].(string); ok {
			if cost, err := strconv.ParseFloat(costStr, 64); err == nil {
				info.EstimatedCost = f64Ptr(cost)
			}
		}
	}
	if tbl, ok := block["table"].(map[string]any); ok {
		if rows, ok := tbl["rows_examined_per_scan"].(float64); ok {
			info.EstimatedRows = i64Ptr(int64(rows))
		}
		if accessType, ok := tbl["access_type"].(string); ok && accessType == "ALL" {
			info.Warnings = append(info.Warnings, "Full table scan detected")
			info.Recommendations = append(info.Recommendations, "Consider adding an index on the filter columns")
		}
	}
	return info
}

func (m *mysql) ProfileDatabase(ctx context.Context, conn *sqlx.Conn, databaseName string) (*meta.DatabaseProfile, error) {
	var version string
	if err := conn.GetContext(ctx, &version, "SELECT VERSION()"); err != nil {
		return nil, fmt.Errorf("querying version: %w", err)
	}

	profile := &meta.DatabaseProfile{
		DatabaseName:  databaseName,
		Version:       version,
		Schemas:       []meta.SchemaProfile{},
		LargestTables: []meta.TableProfile{},
	}

	type schemaRow struct {
		Name       string        `db:"schema_name"`
		TableCount int64         `db:"table_count"`
		TotalSize  sql.NullInt64 `db:"total_size"`
		TotalRows  sql.NullInt64 `db:"total_rows"`
	}
	var schemaRows []schemaRow
	err := conn.SelectContext(ctx, &schemaRows, `
		SELECT table_schema AS schema_name,
		       COUNT(*) AS table_count,
		       CAST(SUM(data_length + index_length) AS SIGNED) AS total_size,
		       CAST(SUM(table_rows) AS SIGNED) AS total_rows
		FROM information_schema.tables
		WHERE table_schema NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		  AND table_type = 'BASE TABLE'
		GROUP BY table_schema
		ORDER BY total_size DESC`)
	if err != nil {
		return nil, fmt.Errorf("profiling schemas: %w", err)
	}

	var totalSize int64
	for _, r := range schemaRows {
		sp := meta.SchemaProfile{Name: r.Name, TableCount: r.TableCount}
		if r.TotalSize.Valid {
			sp.TotalSizeBytes = r.TotalSize.Int64
			totalSize += r.TotalSize.Int64
		}
		if r.TotalRows.Valid {
			sp.TotalRows = i64Ptr(r.TotalRows.Int64)
		}
		profile.Schemas = append(profile.Schemas, sp)
		profile.TotalTables += r.TableCount
	}
	profile.TotalSchemas = len(profile.Schemas)
	profile.TotalSizeBytes = i64Ptr(totalSize)

	type tableRow struct {
		Schema    string        `db:"schema_name"`
		Name      string        `db:"table_name"`
		DataSize  sql.NullInt64 `db:"data_size"`
		IndexSize sql.NullInt64 `db:"index_size"`
		RowCount  sql.NullInt64 `db:"row_count"`
	}
	var tableRows []tableRow
	err = conn.SelectContext(ctx, &tableRows, fmt.Sprintf(`
		SELECT table_schema AS schema_name, table_name,
		       data_length AS data_size, index_length AS index_size,
		       table_rows AS row_count
		FROM information_schema.tables
		WHERE table_schema NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		  AND table_type = 'BASE TABLE'
		ORDER BY data_length + index_length DESC
		LIMIT %d`, profileTableLimit))
	if err != nil {
		m.log.Warn("largest-tables profile skipped", "error", err)
		return profile, nil
	}
	for _, r := range tableRows {
		profile.LargestTables = append(profile.LargestTables, meta.TableProfile{
			Schema:         r.Schema,
			Name:           r.Name,
			TableType:      "BASE TABLE",
			SizeBytes:      r.DataSize.Int64,
			IndexSizeBytes: r.IndexSize.Int64,
			RowCount:       r.RowCount.Int64,
		})
	}
	return profile, nil
}

var _ Adapter = (*mysql)(nil)
