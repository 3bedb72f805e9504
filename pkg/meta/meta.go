// Package meta defines the result descriptors returned by the explorer
// operations. Descriptors are plain values: constructed fresh per request,
// never cached, never mutated after return.
package meta

// DatabaseInfo summarizes the connected database and its capability set.
type DatabaseInfo struct {
	Dialect      string          `json:"dialect"`
	Version      string          `json:"version"`
	ReadOnly     bool            `json:"read_only"`
	Capabilities map[string]bool `json:"capabilities"`
	Features     []string        `json:"supported_features"`
}

// SchemaInfo describes one catalog namespace.
type SchemaInfo struct {
	Name       string  `json:"name"`
	Owner      *string `json:"owner,omitempty"`
	TableCount *int64  `json:"table_count,omitempty"`
	ViewCount  *int64  `json:"view_count,omitempty"`
	SizeBytes  *int64  `json:"size_bytes,omitempty"`
	Comment    *string `json:"comment,omitempty"`
}

// ColumnInfo describes one table column. The primary key, foreign key,
// unique, and indexed markers are derived by cross-referencing constraint and
// index lists, never set directly from column reflection.
type ColumnInfo struct {
	Name       string  `json:"name"`
	DataType   string  `json:"data_type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primary_key"`
	ForeignKey *string `json:"foreign_key,omitempty"`
	Unique     bool    `json:"unique"`
	Indexed    bool    `json:"indexed"`
	Comment    *string `json:"comment,omitempty"`
	MaxLength  *int64  `json:"max_length,omitempty"`
	Precision  *int64  `json:"precision,omitempty"`
	Scale      *int64  `json:"scale,omitempty"`
}

// IndexInfo describes one index.
type IndexInfo struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	Unique    bool     `json:"unique"`
	IndexType *string  `json:"index_type,omitempty"`
}

// ConstraintInfo describes one table constraint.
type ConstraintInfo struct {
	Name              string   `json:"name"`
	ConstraintType    string   `json:"constraint_type"`
	Columns           []string `json:"columns"`
	ReferencedTable   *string  `json:"referenced_table,omitempty"`
	ReferencedColumns []string `json:"referenced_columns,omitempty"`
	Definition        *string  `json:"definition,omitempty"`
}

// TableInfo describes one table or view. Columns, indexes, and constraints
// are owned exclusively by this descriptor.
type TableInfo struct {
	Name           string           `json:"name"`
	Schema         *string          `json:"schema,omitempty"`
	TableType      string           `json:"table_type"`
	RowCount       *int64           `json:"row_count,omitempty"`
	SizeBytes      *int64           `json:"size_bytes,omitempty"`
	IndexSizeBytes *int64           `json:"index_size_bytes,omitempty"`
	Columns        []ColumnInfo     `json:"columns"`
	Indexes        []IndexInfo      `json:"indexes"`
	Constraints    []ConstraintInfo `json:"constraints"`
	Comment        *string          `json:"comment,omitempty"`
	CreatedAt      *string          `json:"created_at,omitempty"`
	UpdatedAt      *string          `json:"updated_at,omitempty"`
	Owner          *string          `json:"owner,omitempty"`
	// ExtraInfo is an open bag of dialect-specific facts (storage engine,
	// partition key, compression ratio); heterogeneous across dialects.
	ExtraInfo map[string]any `json:"extra_info,omitempty"`
}

// Column returns the named column, or nil if absent.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// RelationshipInfo describes one foreign key relationship. Only constructed
// when the dialect supports foreign keys.
type RelationshipInfo struct {
	FromTable      string   `json:"from_table"`
	FromSchema     *string  `json:"from_schema,omitempty"`
	FromColumns    []string `json:"from_columns"`
	ToTable        string   `json:"to_table"`
	ToSchema       *string  `json:"to_schema,omitempty"`
	ToColumns      []string `json:"to_columns"`
	ConstraintName string   `json:"constraint_name"`
	OnDelete       *string  `json:"on_delete,omitempty"`
	OnUpdate       *string  `json:"on_update,omitempty"`
}

// ValueCount pairs a value with its occurrence count.
type ValueCount struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// ColumnStats holds statistical information about one column. When the
// dialect lacks advanced statistics the percentile fields are absent, never
// zero. A warning is set instead of raising when partial data is unavailable.
type ColumnStats struct {
	Column           string       `json:"column"`
	DataType         string       `json:"data_type"`
	TotalRows        int64        `json:"total_rows"`
	NullCount        int64        `json:"null_count"`
	DistinctCount    *int64       `json:"distinct_count,omitempty"`
	MinValue         any          `json:"min_value,omitempty"`
	MaxValue         any          `json:"max_value,omitempty"`
	AvgValue         *float64     `json:"avg_value,omitempty"`
	MedianValue      any          `json:"median_value,omitempty"`
	StddevValue      *float64     `json:"stddev_value,omitempty"`
	Percentile25     any          `json:"percentile_25,omitempty"`
	Percentile75     any          `json:"percentile_75,omitempty"`
	Percentile95     any          `json:"percentile_95,omitempty"`
	Percentile99     any          `json:"percentile_99,omitempty"`
	MostCommonValues []ValueCount `json:"most_common_values"`
	SampleSize       int64        `json:"sample_size"`
	Warning          *string      `json:"warning,omitempty"`
}

// NullPercentage returns the percentage of NULL values.
func (s *ColumnStats) NullPercentage() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	return float64(s.NullCount) / float64(s.TotalRows) * 100
}

// Completeness returns data completeness as a 0..1 fraction.
func (s *ColumnStats) Completeness() float64 {
	return 1 - s.NullPercentage()/100
}

// Cardinality returns distinct/total, or nil when unknown.
func (s *ColumnStats) Cardinality() *float64 {
	if s.DistinctCount == nil || s.TotalRows == 0 {
		return nil
	}
	c := float64(*s.DistinctCount) / float64(s.TotalRows)
	return &c
}

// HasAdvancedStats reports whether any percentile-family metric is present.
// Stddev alone does not count: mid-featured engines compute it without
// supporting percentiles.
func (s *ColumnStats) HasAdvancedStats() bool {
	return s.MedianValue != nil || s.Percentile25 != nil || s.Percentile75 != nil
}

// ErrorStats builds the degraded shape returned when a statistics query
// fails: zeroed counts plus a descriptive warning.
func ErrorStats(column, warning string) ColumnStats {
	return ColumnStats{
		Column:           column,
		DataType:         "unknown",
		MostCommonValues: []ValueCount{},
		Warning:          &warning,
	}
}

// Distribution holds the value distribution of one column.
type Distribution struct {
	Column       string       `json:"column"`
	TotalRows    int64        `json:"total_rows"`
	UniqueValues int64        `json:"unique_values"`
	NullCount    int64        `json:"null_count"`
	TopValues    []ValueCount `json:"top_values"`
	SampleSize   int64        `json:"sample_size"`
}

// Cardinality returns unique/total, or 0 for an empty table.
func (d *Distribution) Cardinality() float64 {
	if d.TotalRows == 0 {
		return 0
	}
	return float64(d.UniqueValues) / float64(d.TotalRows)
}

// IsHighCardinality reports a cardinality above 0.9.
func (d *Distribution) IsHighCardinality() bool { return d.Cardinality() > 0.9 }

// IsLowCardinality reports a cardinality below 0.1.
func (d *Distribution) IsLowCardinality() bool { return d.Cardinality() < 0.1 }

// QueryResult holds the outcome of a read-only query execution.
type QueryResult struct {
	Query           string           `json:"query"`
	Rows            []map[string]any `json:"rows"`
	RowCount        int              `json:"row_count"`
	Columns         []string         `json:"columns"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
	// Truncated is true iff a row limit was applied and the result size
	// equals that limit. It cannot distinguish "exactly N rows existed"
	// from "more than N existed"; this approximation is accepted.
	Truncated bool    `json:"truncated"`
	Warning   *string `json:"warning,omitempty"`
}

// IsEmpty reports whether the result has no rows.
func (q *QueryResult) IsEmpty() bool { return q.RowCount == 0 }

// ColumnCount returns the number of result columns.
func (q *QueryResult) ColumnCount() int { return len(q.Columns) }

// ExplainPlan holds a parsed query execution plan. Actual* fields are only
// populated for analyze-mode explains.
type ExplainPlan struct {
	Query           string   `json:"query"`
	Plan            string   `json:"plan"`
	PlanJSON        any      `json:"plan_json,omitempty"`
	EstimatedCost   *float64 `json:"estimated_cost,omitempty"`
	EstimatedRows   *int64   `json:"estimated_rows,omitempty"`
	ActualTimeMS    *float64 `json:"actual_time_ms,omitempty"`
	ActualRows      *int64   `json:"actual_rows,omitempty"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// SchemaProfile is a per-schema rollup inside a database profile.
type SchemaProfile struct {
	Name           string `json:"name"`
	TableCount     int64  `json:"table_count"`
	ViewCount      *int64 `json:"view_count,omitempty"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
	TotalRows      *int64 `json:"total_rows,omitempty"`
}

// TableProfile is a per-table entry in the largest-tables list.
type TableProfile struct {
	Schema         string `json:"schema"`
	Name           string `json:"name"`
	TableType      string `json:"table_type"`
	SizeBytes      int64  `json:"size_bytes"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
	RowCount       int64  `json:"row_count"`
}

// DatabaseProfile is the full-database rollup.
type DatabaseProfile struct {
	DatabaseName        string          `json:"database_name"`
	Version             string          `json:"version"`
	TotalSizeBytes      *int64          `json:"total_size_bytes,omitempty"`
	TotalSchemas        int             `json:"total_schemas"`
	TotalTables         int64           `json:"total_tables"`
	TotalViews          *int64          `json:"total_views,omitempty"`
	TotalIndexes        *int64          `json:"total_indexes,omitempty"`
	Schemas             []SchemaProfile `json:"schemas"`
	LargestTables       []TableProfile  `json:"largest_tables"`
	TotalIndexSizeBytes *int64          `json:"total_index_size_bytes,omitempty"`
	IndexToTableRatio   *float64        `json:"index_to_table_ratio,omitempty"`
}
