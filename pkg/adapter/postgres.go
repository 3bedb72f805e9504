package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
	"github.com/txn2/mcp-db-explorer/pkg/jsonsafe"
	"github.com/txn2/mcp-db-explorer/pkg/meta"
)

// postgres is the full-featured adapter: broad catalog support, percentile
// statistics, and complete profiling.
type postgres struct {
	log  *slog.Logger
	caps dialect.Capabilities
}

func newPostgres(log *slog.Logger) *postgres {
	return &postgres{log: log, caps: dialect.CapabilitiesFor(dialect.Postgres)}
}

func (p *postgres) Dialect() dialect.Dialect           { return dialect.Postgres }
func (p *postgres) Capabilities() dialect.Capabilities { return p.caps }

func (p *postgres) ref(table string, schema *string) string {
	if schema == nil || *schema == "" {
		public := "public"
		schema = &public
	}
	return tableRef(table, schema, `"`)
}

func (p *postgres) SchemaNames(ctx context.Context, conn *sqlx.Conn) ([]string, error) {
	var names []string
	err := conn.SelectContext(ctx, &names,
		`SELECT schema_name FROM information_schema.schemata ORDER BY schema_name`)
	return names, err
}

func (p *postgres) TableNames(ctx context.Context, conn *sqlx.Conn, schema *string) ([]string, error) {
	return p.relationNames(ctx, conn, schema, "BASE TABLE")
}

func (p *postgres) ViewNames(ctx context.Context, conn *sqlx.Conn, schema *string) ([]string, error) {
	return p.relationNames(ctx, conn, schema, "VIEW")
}

func (p *postgres) relationNames(ctx context.Context, conn *sqlx.Conn, schema *string, tableType string) ([]string, error) {
	schemaName := "public"
	if schema != nil && *schema != "" {
		schemaName = *schema
	}
	var names []string
	err := conn.SelectContext(ctx, &names,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = $2 ORDER BY table_name`,
		schemaName, tableType)
	return names, err
}

type pgColumnRow struct {
	Name      string         `db:"column_name"`
	DataType  string         `db:"data_type"`
	Nullable  string         `db:"is_nullable"`
	Default   sql.NullString `db:"column_default"`
	MaxLength sql.NullInt64  `db:"character_maximum_length"`
	Precision sql.NullInt64  `db:"numeric_precision"`
	Scale     sql.NullInt64  `db:"numeric_scale"`
	Comment   sql.NullString `db:"comment"`
}

func (p *postgres) Columns(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ColumnInfo, error) {
	schemaName := "public"
	if schema != nil && *schema != "" {
		schemaName = *schema
	}
	var rows []pgColumnRow
	err := conn.SelectContext(ctx, &rows, `
		SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
		       c.character_maximum_length, c.numeric_precision, c.numeric_scale,
		       pgd.description AS comment
		FROM information_schema.columns c
		LEFT JOIN pg_catalog.pg_statio_all_tables st
		       ON st.schemaname = c.table_schema AND st.relname = c.table_name
		LEFT JOIN pg_catalog.pg_description pgd
		       ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("reflecting columns of %s.%s: %w", schemaName, table, err)
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
		if r.Comment.Valid {
			col.Comment = strPtr(r.Comment.String)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (p *postgres) PrimaryKeyColumns(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]string, error) {
	schemaName := "public"
	if schema != nil && *schema != "" {
		schemaName = *schema
	}
	var names []string
	err := conn.SelectContext(ctx, &names, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`, schemaName, table)
	return names, err
}

type pgIndexRow struct {
	IndexName string `db:"index_name"`
	Column    string `db:"column_name"`
	Unique    bool   `db:"is_unique"`
	Method    string `db:"index_method"`
}

func (p *postgres) Indexes(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.IndexInfo, error) {
	schemaName := "public"
	if schema != nil && *schema != "" {
		schemaName = *schema
	}
	var rows []pgIndexRow
	err := conn.SelectContext(ctx, &rows, `
		SELECT i.relname AS index_name, a.attname AS column_name,
		       ix.indisunique AS is_unique, am.amname AS index_method
		FROM pg_catalog.pg_class t
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_catalog.pg_index ix ON ix.indrelid = t.oid
		JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_am am ON am.oid = i.relam
		JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relname = $2 AND NOT ix.indisprimary
		ORDER BY i.relname, a.attnum`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("reflecting indexes of %s.%s: %w", schemaName, table, err)
	}
	return groupIndexRows(rows), nil
}

func groupIndexRows(rows []pgIndexRow) []meta.IndexInfo {
	indexes := []meta.IndexInfo{}
	byName := map[string]int{}
	for _, r := range rows {
		if i, ok := byName[r.IndexName]; ok {
			indexes[i].Columns = append(indexes[i].Columns, r.Column)
			continue
		}
		byName[r.IndexName] = len(indexes)
		method := r.Method
		indexes = append(indexes, meta.IndexInfo{
			Name:      r.IndexName,
			Columns:   []string{r.Column},
			Unique:    r.Unique,
			IndexType: &method,
		})
	}
	return indexes
}

type pgForeignKeyRow struct {
	Name           string `db:"constraint_name"`
	Column         string `db:"column_name"`
	ReferredSchema string `db:"referred_schema"`
	ReferredTable  string `db:"referred_table"`
	ReferredColumn string `db:"referred_column"`
	DeleteRule     string `db:"delete_rule"`
	UpdateRule     string `db:"update_rule"`
}

func (p *postgres) ForeignKeys(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]ForeignKey, error) {
	schemaName := "public"
	if schema != nil && *schema != "" {
		schemaName = *schema
	}
	var rows []pgForeignKeyRow
	err := conn.SelectContext(ctx, &rows, `
		SELECT tc.constraint_name, kcu.column_name,
		       ccu.table_schema AS referred_schema, ccu.table_name AS referred_table,
		       ccu.column_name AS referred_column,
		       rc.delete_rule, rc.update_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.constraint_schema = tc.constraint_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.constraint_schema = tc.constraint_schema
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_name = tc.constraint_name
		 AND rc.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("reflecting foreign keys of %s.%s: %w", schemaName, table, err)
	}

	fks := []ForeignKey{}
	byName := map[string]int{}
	for _, r := range rows {
		if i, ok := byName[r.Name]; ok {
			fks[i].Columns = append(fks[i].Columns, r.Column)
			fks[i].ReferredColumns = append(fks[i].ReferredColumns, r.ReferredColumn)
			continue
		}
		byName[r.Name] = len(fks)
		fks = append(fks, ForeignKey{
			Name:            r.Name,
			Columns:         []string{r.Column},
			ReferredTable:   r.ReferredTable,
			ReferredSchema:  strPtr(r.ReferredSchema),
			ReferredColumns: []string{r.ReferredColumn},
			OnDelete:        strPtr(r.DeleteRule),
			OnUpdate:        strPtr(r.UpdateRule),
		})
	}
	return fks, nil
}

type pgConstraintRow struct {
	Name   string `db:"constraint_name"`
	Column string `db:"column_name"`
}

func (p *postgres) UniqueConstraints(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ConstraintInfo, error) {
	schemaName := "public"
	if schema != nil && *schema != "" {
		schemaName = *schema
	}
	var rows []pgConstraintRow
	err := conn.SelectContext(ctx, &rows, `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'UNIQUE'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("reflecting unique constraints of %s.%s: %w", schemaName, table, err)
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

type pgCheckRow struct {
	Name       string `db:"constraint_name"`
	Definition string `db:"check_clause"`
}

func (p *postgres) CheckConstraints(ctx context.Context, conn *sqlx.Conn, table string, schema *string) ([]meta.ConstraintInfo, error) {
	schemaName := "public"
	if schema != nil && *schema != "" {
		schemaName = *schema
	}
	var rows []pgCheckRow
	err := conn.SelectContext(ctx, &rows, `
		SELECT cc.constraint_name, cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
		  ON cc.constraint_name = tc.constraint_name
		 AND cc.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'CHECK'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY cc.constraint_name`, schemaName, table)
	if err != nil {
		// Not every catalog grants access here; empty, not fatal.
		return []meta.ConstraintInfo{}, nil
	}

	constraints := make([]meta.ConstraintInfo, 0, len(rows))
	for _, r := range rows {
		def := r.Definition
		constraints = append(constraints, meta.ConstraintInfo{
			Name:           r.Name,
			ConstraintType: "CHECK",
			Columns:        []string{},
			Definition:     &def,
		})
	}
	return constraints, nil
}

func (p *postgres) EnrichSchema(ctx context.Context, conn *sqlx.Conn, info *meta.SchemaInfo) {
	var owner, comment sql.NullString
	err := conn.QueryRowxContext(ctx, `
		SELECT pg_catalog.pg_get_userbyid(n.nspowner) AS owner,
		       pg_catalog.obj_description(n.oid, 'pg_namespace') AS comment
		FROM pg_catalog.pg_namespace n
		WHERE n.nspname = $1`, info.Name).Scan(&owner, &comment)
	if err == nil {
		if owner.Valid {
			info.Owner = strPtr(owner.String)
		}
		if comment.Valid {
			info.Comment = strPtr(comment.String)
		}
	} else if err != sql.ErrNoRows {
		p.log.Warn("schema enrichment skipped", "schema", info.Name, "error", err)
	}

	var size sql.NullInt64
	err = conn.GetContext(ctx, &size, `
		SELECT SUM(pg_total_relation_size(quote_ident(schemaname) || '.' || quote_ident(tablename)))::bigint
		FROM pg_tables WHERE schemaname = $1`, info.Name)
	if err == nil && size.Valid {
		info.SizeBytes = i64Ptr(size.Int64)
	}
}

func (p *postgres) EnrichTable(ctx context.Context, conn *sqlx.Conn, info *meta.TableInfo) {
	ident := p.ref(info.Name, info.Schema)

	// regclass casts require the identifier inline; parameter binding does
	// not work for them.
	var total, tableSize, indexSize, rowCount sql.NullInt64
	var comment sql.NullString
	query := fmt.Sprintf(`
		SELECT pg_total_relation_size('%[1]s'::regclass)::bigint AS total_size,
		       pg_relation_size('%[1]s'::regclass)::bigint AS table_size,
		       pg_indexes_size('%[1]s'::regclass)::bigint AS indexes_size,
		       (SELECT reltuples::bigint FROM pg_class WHERE oid = '%[1]s'::regclass::oid) AS row_count,
		       obj_description('%[1]s'::regclass, 'pg_class') AS comment`, ident)
	err := conn.QueryRowxContext(ctx, query).Scan(&total, &tableSize, &indexSize, &rowCount, &comment)
	if err != nil {
		p.log.Warn("table enrichment skipped", "table", info.Name, "error", err)
		return
	}
	if tableSize.Valid {
		info.SizeBytes = i64Ptr(tableSize.Int64)
	}
	if indexSize.Valid {
		info.IndexSizeBytes = i64Ptr(indexSize.Int64)
	}
	if rowCount.Valid {
		info.RowCount = i64Ptr(rowCount.Int64)
	}
	if comment.Valid {
		info.Comment = strPtr(comment.String)
	}

	var relkind, persistence sql.NullString
	var isPartition sql.NullBool
	err = conn.QueryRowxContext(ctx, `
		SELECT c.relkind::text, c.relpersistence::text, c.relispartition
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relname = $1 AND n.nspname = COALESCE($2, 'public')`,
		info.Name, info.Schema).Scan(&relkind, &persistence, &isPartition)
	if err != nil {
		p.log.Warn("table extras skipped", "table", info.Name, "error", err)
		return
	}
	if info.ExtraInfo == nil {
		info.ExtraInfo = map[string]any{}
	}
	info.ExtraInfo["relkind"] = relkind.String
	info.ExtraInfo["persistence"] = persistence.String
	info.ExtraInfo["is_partition"] = isPartition.Bool
}

// columnDataType infers the column's type from a live value; statistics
// branching depends on it.
func (p *postgres) columnDataType(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string) string {
	query := fmt.Sprintf(
		`SELECT pg_typeof(%[1]s)::text FROM %[2]s WHERE %[1]s IS NOT NULL LIMIT 1`,
		quoteIdent(column, `"`), p.ref(table, schema))
	var dataType string
	if err := conn.GetContext(ctx, &dataType, query); err != nil {
		return "unknown"
	}
	return dataType
}

func (p *postgres) ColumnStatistics(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string) meta.ColumnStats {
	ref := p.ref(table, schema)
	col := quoteIdent(column, `"`)
	dataType := p.columnDataType(ctx, conn, table, column, schema)
	numeric := isNumericType(dataType)

	var query string
	if numeric {
		// One pass: counts, extremes, moments, and percentiles together.
		query = fmt.Sprintf(`
			SELECT COUNT(*) AS total_rows,
			       COUNT(*) - COUNT(%[1]s) AS null_count,
			       COUNT(DISTINCT %[1]s) AS distinct_count,
			       MIN(%[1]s)::text AS min_val,
			       MAX(%[1]s)::text AS max_val,
			       AVG(%[1]s)::float AS avg_val,
			       STDDEV(%[1]s)::float AS stddev_val,
			       PERCENTILE_CONT(0.25) WITHIN GROUP (ORDER BY %[1]s)::float AS p25,
			       PERCENTILE_CONT(0.50) WITHIN GROUP (ORDER BY %[1]s)::float AS p50,
			       PERCENTILE_CONT(0.75) WITHIN GROUP (ORDER BY %[1]s)::float AS p75,
			       PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY %[1]s)::float AS p95,
			       PERCENTILE_CONT(0.99) WITHIN GROUP (ORDER BY %[1]s)::float AS p99
			FROM %[2]s`, col, ref)
	} else {
		query = fmt.Sprintf(`
			SELECT COUNT(*) AS total_rows,
			       COUNT(*) - COUNT(%[1]s) AS null_count,
			       COUNT(DISTINCT %[1]s) AS distinct_count,
			       MIN(%[1]s)::text AS min_val,
			       MAX(%[1]s)::text AS max_val,
			       NULL::float AS avg_val,
			       NULL::float AS stddev_val,
			       NULL::float AS p25, NULL::float AS p50, NULL::float AS p75,
			       NULL::float AS p95, NULL::float AS p99
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
		P25           sql.NullFloat64 `db:"p25"`
		P50           sql.NullFloat64 `db:"p50"`
		P75           sql.NullFloat64 `db:"p75"`
		P95           sql.NullFloat64 `db:"p95"`
		P99           sql.NullFloat64 `db:"p99"`
	}
	if err := conn.GetContext(ctx, &row, query); err != nil {
		return meta.ErrorStats(column, fmt.Sprintf("Statistics unavailable: %v", err))
	}

	stats := meta.ColumnStats{
		Column:           column,
		DataType:         dataType,
		TotalRows:        row.TotalRows,
		NullCount:        row.NullCount,
		SampleSize:       row.TotalRows,
		MostCommonValues: []meta.ValueCount{},
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
	if usableFloat(row.P25) {
		stats.Percentile25 = row.P25.Float64
	}
	if usableFloat(row.P50) {
		stats.MedianValue = row.P50.Float64
	}
	if usableFloat(row.P75) {
		stats.Percentile75 = row.P75.Float64
	}
	if usableFloat(row.P95) {
		stats.Percentile95 = row.P95.Float64
	}
	if usableFloat(row.P99) {
		stats.Percentile99 = row.P99.Float64
	}

	mcv, err := p.mostCommonValues(ctx, conn, ref, col)
	if err != nil {
		stats.Warning = strPtr(fmt.Sprintf("Most common values unavailable: %v", err))
		return stats
	}
	stats.MostCommonValues = mcv
	return stats
}

func (p *postgres) mostCommonValues(ctx context.Context, conn *sqlx.Conn, ref, col string) ([]meta.ValueCount, error) {
	query, args, err := sq.Select(col+"::text AS value", "COUNT(*) AS count").
		From(ref).
		Where(col + " IS NOT NULL").
		GroupBy(col).
		OrderBy("count DESC").
		Limit(mostCommonLimit).
		PlaceholderFormat(sq.Dollar).
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

func (p *postgres) ValueDistribution(ctx context.Context, conn *sqlx.Conn, table, column string, schema *string, limit int) (meta.Distribution, error) {
	ref := p.ref(table, schema)
	col := quoteIdent(column, `"`)

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

	// The cap rides inside the query; these tables can be large.
	topQuery, args, err := sq.Select(col+"::text AS value", "COUNT(*) AS count").
		From(ref).
		Where(col + " IS NOT NULL").
		GroupBy(col).
		OrderBy("count DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
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

func (p *postgres) SampleQuery(table string, schema *string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", p.ref(table, schema), limit)
}

func (p *postgres) ExplainQuery(query string, analyze bool) string {
	if analyze {
		return "EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) " + query
	}
	return "EXPLAIN (FORMAT JSON) " + query
}

// ParseExplainPlan parses EXPLAIN (FORMAT JSON) output. Failures yield an
// empty-but-valid PlanInfo with a warning.
func (p *postgres) ParseExplainPlan(planText string, analyzed bool) PlanInfo {
	info := PlanInfo{PlanText: planText, Warnings: []string{}, Recommendations: []string{}}

	var parsed []map[string]any
	if err := json.Unmarshal([]byte(planText), &parsed); err != nil || len(parsed) == 0 {
		info.Warnings = append(info.Warnings, fmt.Sprintf("Could not parse EXPLAIN output as JSON: %v", err))
		return info
	}

	info.JSON = parsed
	plan, _ := parsed[0]["Plan"].(map[string]any)
	if plan == nil {
		return info
	}

	info.PlanText = formatPlanNode(plan, 0)
	if cost, ok := plan["Total Cost"].(float64); ok {
		info.EstimatedCost = f64Ptr(cost)
	}
	if rows, ok := plan["Plan Rows"].(float64); ok {
		info.EstimatedRows = i64Ptr(int64(rows))
	}
	if analyzed {
		if t, ok := plan["Actual Total Time"].(float64); ok {
			info.ActualTimeMS = f64Ptr(t)
		}
		if r, ok := plan["Actual Rows"].(float64); ok {
			info.ActualRows = i64Ptr(int64(r))
		}
	}

	// Shallow, best-effort diagnostic by node-type inspection.
	if planContainsNodeType(plan, "Seq Scan") {
		info.Warnings = append(info.Warnings, "Sequential scan detected - may be slow on large tables")
		info.Recommendations = append(info.Recommendations, "Consider adding appropriate indexes")
	}
	return info
}

// formatPlanNode renders a JSON plan node as indented human-readable text.
func formatPlanNode(plan map[string]any, indent int) string {
	prefix := strings.Repeat("  ", indent)
	var lines []string

	nodeType, _ := plan["Node Type"].(string)
	if nodeType == "" {
		nodeType = "Unknown"
	}
	head := prefix + nodeType
	if rel, ok := plan["Relation Name"].(string); ok {
		head += " on " + rel
		if alias, ok := plan["Alias"].(string); ok && alias != rel {
			head += fmt.Sprintf(" (alias: %s)", alias)
		}
	}
	lines = append(lines, head)

	startup, _ := plan["Startup Cost"].(float64)
	total, _ := plan["Total Cost"].(float64)
	rows, _ := plan["Plan Rows"].(float64)
	width, _ := plan["Plan Width"].(float64)
	lines = append(lines, fmt.Sprintf("%s  (cost=%.2f..%.2f rows=%d width=%d)",
		prefix, startup, total, int64(rows), int64(width)))

	if actualTime, ok := plan["Actual Total Time"].(float64); ok {
		actualRows, _ := plan["Actual Rows"].(float64)
		loops, _ := plan["Actual Loops"].(float64)
		lines = append(lines, fmt.Sprintf("%s  (actual time=%.3f rows=%d loops=%d)",
			prefix, actualTime, int64(actualRows), int64(loops)))
	}
	if filter, ok := plan["Filter"].(string); ok {
		lines = append(lines, prefix+"  Filter: "+filter)
	}
	if cond, ok := plan["Index Cond"].(string); ok {
		lines = append(lines, prefix+"  Index Cond: "+cond)
	}

	if children, ok := plan["Plans"].([]any); ok {
		for _, child := range children {
			if node, ok := child.(map[string]any); ok {
				lines = append(lines, "", formatPlanNode(node, indent+1))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func planContainsNodeType(plan map[string]any, nodeType string) bool {
	if nt, _ := plan["Node Type"].(string); nt == nodeType {
		return true
	}
	if children, ok := plan["Plans"].([]any); ok {
		for _, child := range children {
			if node, ok := child.(map[string]any); ok && planContainsNodeType(node, nodeType) {
				return true
			}
		}
	}
	return false
}

func (p *postgres) ProfileDatabase(ctx context.Context, conn *sqlx.Conn, databaseName string) (*meta.DatabaseProfile, error) {
	var version string
	if err := conn.GetContext(ctx, &version, "SELECT version()"); err != nil {
		return nil, fmt.Errorf("querying version: %w", err)
	}

	profile := &meta.DatabaseProfile{
		DatabaseName:  databaseName,
		Version:       version,
		Schemas:       []meta.SchemaProfile{},
		LargestTables: []meta.TableProfile{},
	}

	var dbSize sql.NullInt64
	if err := conn.GetContext(ctx, &dbSize, "SELECT pg_database_size(current_database())::bigint"); err == nil && dbSize.Valid {
		profile.TotalSizeBytes = i64Ptr(dbSize.Int64)
	}

	type schemaRow struct {
		Name       string `db:"schema_name"`
		TableCount int64  `db:"table_count"`
		ViewCount  int64  `db:"view_count"`
		TotalSize  int64  `db:"total_size"`
		TotalRows  int64  `db:"total_rows"`
	}
	var schemaRows []schemaRow
	err := conn.SelectContext(ctx, &schemaRows, `
		SELECT n.nspname AS schema_name,
		       COUNT(DISTINCT c.relname) FILTER (WHERE c.relkind = 'r') AS table_count,
		       COUNT(DISTINCT c.relname) FILTER (WHERE c.relkind = 'v') AS view_count,
		       COALESCE(SUM(pg_total_relation_size(c.oid)) FILTER (WHERE c.relkind = 'r'), 0)::bigint AS total_size,
		       COALESCE(SUM(c.reltuples) FILTER (WHERE c.relkind = 'r'), 0)::bigint AS total_rows
		FROM pg_namespace n
		LEFT JOIN pg_class c ON n.oid = c.relnamespace
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		GROUP BY n.nspname
		ORDER BY total_size DESC`)
	if err != nil {
		return nil, fmt.Errorf("profiling schemas: %w", err)
	}

	var totalViews int64
	for _, r := range schemaRows {
		rows := r.TotalRows
		views := r.ViewCount
		profile.Schemas = append(profile.Schemas, meta.SchemaProfile{
			Name:           r.Name,
			TableCount:     r.TableCount,
			ViewCount:      &views,
			TotalSizeBytes: r.TotalSize,
			TotalRows:      &rows,
		})
		profile.TotalTables += r.TableCount
		totalViews += r.ViewCount
	}
	profile.TotalSchemas = len(profile.Schemas)
	profile.TotalViews = &totalViews

	type tableRow struct {
		Schema    string `db:"schema_name"`
		Name      string `db:"table_name"`
		TableType string `db:"table_type"`
		TotalSize int64  `db:"total_size"`
		IndexSize int64  `db:"index_size"`
		RowCount  int64  `db:"row_count"`
	}
	var tableRows []tableRow
	err = conn.SelectContext(ctx, &tableRows, fmt.Sprintf(`
		SELECT n.nspname AS schema_name,
		       c.relname AS table_name,
		       CASE WHEN c.relkind = 'r' THEN 'BASE TABLE'
		            WHEN c.relkind = 'v' THEN 'VIEW'
		            WHEN c.relkind = 'm' THEN 'MATERIALIZED VIEW'
		            ELSE 'OTHER' END AS table_type,
		       pg_total_relation_size(c.oid)::bigint AS total_size,
		       pg_indexes_size(c.oid)::bigint AS index_size,
		       c.reltuples::bigint AS row_count
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'v', 'm')
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY total_size DESC
		LIMIT %d`, profileTableLimit))
	if err != nil {
		p.log.Warn("largest-tables profile skipped", "error", err)
	} else {
		for _, r := range tableRows {
			profile.LargestTables = append(profile.LargestTables, meta.TableProfile{
				Schema:         r.Schema,
				Name:           r.Name,
				TableType:      r.TableType,
				SizeBytes:      r.TotalSize,
				IndexSizeBytes: r.IndexSize,
				RowCount:       r.RowCount,
			})
		}
	}

	var indexSizes struct {
		IndexSize int64 `db:"total_index_size"`
		TableSize int64 `db:"total_table_size"`
	}
	err = conn.GetContext(ctx, &indexSizes, `
		SELECT COALESCE(SUM(pg_indexes_size(c.oid)), 0)::bigint AS total_index_size,
		       COALESCE(SUM(pg_relation_size(c.oid)), 0)::bigint AS total_table_size
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')`)
	if err == nil {
		profile.TotalIndexSizeBytes = i64Ptr(indexSizes.IndexSize)
		if indexSizes.TableSize > 0 {
			profile.IndexToTableRatio = f64Ptr(float64(indexSizes.IndexSize) / float64(indexSizes.TableSize))
		}
	} else {
		p.log.Warn("index-size profile skipped", "error", err)
	}

	var indexCount sql.NullInt64
	err = conn.GetContext(ctx, &indexCount, `
		SELECT COUNT(*)::bigint FROM pg_indexes
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')`)
	if err == nil && indexCount.Valid {
		profile.TotalIndexes = i64Ptr(indexCount.Int64)
	}

	return profile, nil
}

var _ Adapter = (*postgres)(nil)
