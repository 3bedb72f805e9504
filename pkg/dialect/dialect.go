// Package dialect defines the supported SQL engine families and the
// capability descriptors that gate tool availability and adapter behavior.
package dialect

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect identifies a supported SQL engine family.
type Dialect string

// Canonical dialect names. Exactly three engines are supported; there is no
// dynamic registration.
const (
	Postgres   Dialect = "postgresql"
	MySQL      Dialect = "mysql"
	ClickHouse Dialect = "clickhouse"
)

// aliases maps common URL scheme spellings (including SQLAlchemy-style
// dialect+driver tokens) to canonical dialect names.
var aliases = map[string]Dialect{
	"postgresql":         Postgres,
	"postgres":           Postgres,
	"pg":                 Postgres,
	"postgresql+asyncpg": Postgres,
	"postgres+asyncpg":   Postgres,
	"mysql":              MySQL,
	"mariadb":            MySQL,
	"mysql+aiomysql":     MySQL,
	"mysql+pymysql":      MySQL,
	"clickhouse":         ClickHouse,
	"clickhousedb":       ClickHouse,
	"clickhouse+native":  ClickHouse,
	"clickhouse+http":    ClickHouse,
}

// Normalize resolves a URL scheme token to a canonical dialect.
func Normalize(scheme string) (Dialect, error) {
	d, ok := aliases[strings.ToLower(strings.TrimSpace(scheme))]
	if !ok {
		return "", fmt.Errorf("unsupported dialect %q (supported: postgresql, mysql, clickhouse)", scheme)
	}
	return d, nil
}

// DriverName returns the database/sql driver name for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case ClickHouse:
		return "clickhouse"
	}
	return ""
}

// String returns the canonical dialect name.
func (d Dialect) String() string {
	return string(d)
}

// Capabilities is an immutable set of feature flags for a dialect. It is the
// single source of truth for which tools are offered and which SQL branch an
// adapter takes.
type Capabilities struct {
	ForeignKeys      bool `json:"foreign_keys"`
	Indexes          bool `json:"indexes"`
	Views            bool `json:"views"`
	MaterializedView bool `json:"materialized_views"`
	Partitions       bool `json:"partitions"`
	AdvancedStats    bool `json:"advanced_stats"`
	ExplainPlans     bool `json:"explain_plans"`
	Profiling        bool `json:"profiling"`
	Comments         bool `json:"comments"`
	Schemas          bool `json:"schemas"`
	Transactions     bool `json:"transactions"`
	StoredProcedures bool `json:"stored_procedures"`
	Triggers         bool `json:"triggers"`
}

// capabilityMatrix holds the fixed per-dialect capability sets.
var capabilityMatrix = map[Dialect]Capabilities{
	Postgres: {
		ForeignKeys:      true,
		Indexes:          true,
		Views:            true,
		MaterializedView: true,
		Partitions:       true,
		AdvancedStats:    true,
		ExplainPlans:     true,
		Profiling:        true,
		Comments:         true,
		Schemas:          true,
		Transactions:     true,
		StoredProcedures: true,
		Triggers:         true,
	},
	MySQL: {
		ForeignKeys:      true,
		Indexes:          true,
		Views:            true,
		MaterializedView: false,
		Partitions:       true,
		AdvancedStats:    false, // no percentile functions
		ExplainPlans:     true,
		Profiling:        false, // catalog-table profiling only
		Comments:         true,
		Schemas:          true,
		Transactions:     true,
		StoredProcedures: true,
		Triggers:         true,
	},
	ClickHouse: {
		ForeignKeys:      false, // FK constraints are not enforced
		Indexes:          true,
		Views:            true,
		MaterializedView: true,
		Partitions:       true,
		AdvancedStats:    true,
		ExplainPlans:     true,
		Profiling:        true,
		Comments:         true,
		Schemas:          true,
		Transactions:     false,
		StoredProcedures: false,
		Triggers:         false,
	},
}

// CapabilitiesFor returns the capability descriptor for a dialect.
func CapabilitiesFor(d Dialect) Capabilities {
	return capabilityMatrix[d]
}

// AsMap returns the capability flags keyed by their wire names.
func (c Capabilities) AsMap() map[string]bool {
	return map[string]bool{
		"foreign_keys":       c.ForeignKeys,
		"indexes":            c.Indexes,
		"views":              c.Views,
		"materialized_views": c.MaterializedView,
		"partitions":         c.Partitions,
		"advanced_stats":     c.AdvancedStats,
		"explain_plans":      c.ExplainPlans,
		"profiling":          c.Profiling,
		"comments":           c.Comments,
		"schemas":            c.Schemas,
		"transactions":       c.Transactions,
		"stored_procedures":  c.StoredProcedures,
		"triggers":           c.Triggers,
	}
}

// SupportedFeatures returns the names of enabled capabilities, sorted.
func (c Capabilities) SupportedFeatures() []string {
	var features []string
	for name, enabled := range c.AsMap() {
		if enabled {
			features = append(features, name)
		}
	}
	sort.Strings(features)
	return features
}

// systemSchemas lists catalog namespaces hidden from schema listings.
var systemSchemas = map[Dialect][]string{
	Postgres:   {"information_schema", "pg_catalog", "pg_toast"},
	MySQL:      {"information_schema", "mysql", "performance_schema", "sys"},
	ClickHouse: {"information_schema", "INFORMATION_SCHEMA", "system"},
}

// IsSystemSchema reports whether name is a well-known system schema for the
// dialect and should be excluded from listings.
func IsSystemSchema(d Dialect, name string) bool {
	for _, s := range systemSchemas[d] {
		if s == name {
			return true
		}
	}
	return false
}
