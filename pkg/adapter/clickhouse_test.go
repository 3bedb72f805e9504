package adapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClickHouseSampleQuery(t *testing.T) {
	c := newClickHouse(slog.Default())
	schema := "events"
	assert.Equal(t, "SELECT * FROM `events`.`clicks` SAMPLE 0.01 LIMIT 100",
		c.SampleQuery("clicks", &schema, 100))
	assert.Equal(t, "SELECT * FROM `clicks` SAMPLE 0.01 LIMIT 10",
		c.SampleQuery("clicks", nil, 10))
}

func TestClickHouseExplainQuery(t *testing.T) {
	c := newClickHouse(slog.Default())
	assert.Equal(t, "EXPLAIN SELECT 1", c.ExplainQuery("SELECT 1", false))
	assert.Equal(t, "EXPLAIN PIPELINE SELECT 1", c.ExplainQuery("SELECT 1", true))
}

func TestClickHouseParseExplainPlan(t *testing.T) {
	c := newClickHouse(slog.Default())

	plain := c.ParseExplainPlan("Expression ((Projection + Before ORDER BY))\n  ReadFromMergeTree (events.clicks)", false)
	assert.Empty(t, plain.Warnings)
	assert.Contains(t, plain.PlanText, "ReadFromMergeTree")

	scan := c.ParseExplainPlan("ReadFromStorage (full scan of table clicks)", false)
	require.NotEmpty(t, scan.Warnings)
	assert.Contains(t, scan.Warnings[0], "Full scan")
	assert.NotEmpty(t, scan.Recommendations)
}

func TestClickHouseColumnStatistics_EmptyTableNaN(t *testing.T) {
	c := newClickHouse(slog.Default())
	conn, mock := newMockConn(t)

	// avg, stddevPop, and quantile over zero rows come back as NaN, not NULL,
	// and NaN scans as a valid float64. The stats must drop those values so
	// the result stays JSON-encodable.
	mock.ExpectQuery("SELECT type FROM system.columns").
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("Float64"))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{
			"total_rows", "null_count", "distinct_count", "min_val", "max_val",
			"avg_val", "stddev_val", "p25", "p50", "p75", "p95", "p99",
		}).AddRow(0, 0, 0, nil, nil,
			math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()))
	mock.ExpectQuery("SELECT toString").
		WillReturnRows(sqlmock.NewRows([]string{"value", "count"}))

	stats := c.ColumnStatistics(context.Background(), conn, "clicks", "latency", nil)
	assert.Equal(t, int64(0), stats.TotalRows)
	assert.Nil(t, stats.AvgValue)
	assert.Nil(t, stats.StddevValue)
	assert.Nil(t, stats.MedianValue)
	assert.Nil(t, stats.Percentile25)
	assert.Nil(t, stats.Percentile75)
	assert.Nil(t, stats.Percentile95)
	assert.Nil(t, stats.Percentile99)
	assert.False(t, stats.HasAdvancedStats())

	_, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseNoRelationalConstraints(t *testing.T) {
	c := newClickHouse(slog.Default())

	// No foreign keys, unique, or check constraints exist in this engine;
	// the reflection calls return empty without touching a connection.
	fks, err := c.ForeignKeys(t.Context(), nil, "clicks", nil)
	require.NoError(t, err)
	assert.Empty(t, fks)

	unique, err := c.UniqueConstraints(t.Context(), nil, "clicks", nil)
	require.NoError(t, err)
	assert.Empty(t, unique)

	checks, err := c.CheckConstraints(t.Context(), nil, "clicks", nil)
	require.NoError(t, err)
	assert.Empty(t, checks)
}
