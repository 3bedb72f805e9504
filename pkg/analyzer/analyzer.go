// Package analyzer computes column statistics and value distributions.
// Statistics degrade instead of failing: a broken column yields a zeroed
// shape with a warning, never an error.
package analyzer

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/txn2/mcp-db-explorer/pkg/adapter"
	"github.com/txn2/mcp-db-explorer/pkg/connection"
	"github.com/txn2/mcp-db-explorer/pkg/meta"
)

// DefaultDistributionLimit caps the top-values list when the caller does not.
const DefaultDistributionLimit = 20

// Analyzer runs statistical queries through the dialect adapter.
type Analyzer struct {
	mgr *connection.Manager
	ad  adapter.Adapter
	log *slog.Logger
}

// New builds an analyzer over an initialized connection manager.
func New(mgr *connection.Manager, ad adapter.Adapter, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{mgr: mgr, ad: ad, log: log.With("component", "analyzer")}
}

// AnalyzeColumn computes statistics for one column. Connection-level
// failures are the only errors; statistics failures come back as a degraded
// shape with a warning.
func (a *Analyzer) AnalyzeColumn(ctx context.Context, table, column string, schema *string) (meta.ColumnStats, error) {
	var stats meta.ColumnStats
	err := a.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		stats = a.ad.ColumnStatistics(ctx, conn, table, column, schema)
		return nil
	})
	if err != nil {
		return meta.ColumnStats{}, err
	}
	if stats.Warning != nil {
		a.log.Debug("degraded statistics", "table", table, "column", column, "warning", *stats.Warning)
	}
	return stats, nil
}

// AnalyzeColumns computes statistics for several columns sequentially on one
// connection. A failing column contributes a degraded entry; the rest still
// compute.
func (a *Analyzer) AnalyzeColumns(ctx context.Context, table string, columns []string, schema *string) ([]meta.ColumnStats, error) {
	results := make([]meta.ColumnStats, 0, len(columns))
	err := a.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		for _, column := range columns {
			results = append(results, a.ad.ColumnStatistics(ctx, conn, table, column, schema))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ValueDistribution returns the top values of a column with cardinality
// counts.
func (a *Analyzer) ValueDistribution(ctx context.Context, table, column string, schema *string, limit int) (meta.Distribution, error) {
	if limit <= 0 {
		limit = DefaultDistributionLimit
	}
	var dist meta.Distribution
	err := a.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		var err error
		dist, err = a.ad.ValueDistribution(ctx, conn, table, column, schema, limit)
		return err
	})
	if err != nil {
		return meta.Distribution{}, err
	}
	return dist, nil
}

// ProfileDatabase builds the whole-database rollup.
func (a *Analyzer) ProfileDatabase(ctx context.Context, databaseName string) (*meta.DatabaseProfile, error) {
	var profile *meta.DatabaseProfile
	err := a.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		var err error
		profile, err = a.ad.ProfileDatabase(ctx, conn, databaseName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
