// Package executor runs validated read-only queries and explain plans,
// normalizing every result value to a JSON-safe shape.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/txn2/mcp-db-explorer/pkg/adapter"
	"github.com/txn2/mcp-db-explorer/pkg/connection"
	"github.com/txn2/mcp-db-explorer/pkg/jsonsafe"
	"github.com/txn2/mcp-db-explorer/pkg/meta"
)

// DefaultLimit is applied when the caller does not bound the result.
const DefaultLimit = 1000

// Executor runs queries through the connection manager's scoped checkout,
// so every execution carries the read-only and timeout session directives.
type Executor struct {
	mgr *connection.Manager
	ad  adapter.Adapter
	log *slog.Logger
}

// New builds an executor over an initialized connection manager.
func New(mgr *connection.Manager, ad adapter.Adapter, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{mgr: mgr, ad: ad, log: log.With("component", "executor")}
}

// Execute validates and runs one read query, capping the result at limit
// rows. A limit of 0 applies DefaultLimit; a negative limit disables the cap.
func (e *Executor) Execute(ctx context.Context, query string, limit int) (*meta.QueryResult, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	bounded, limited := applyLimit(query, limit)
	// The result reports the query as executed, LIMIT injection included.
	result := &meta.QueryResult{
		Query:   bounded,
		Rows:    []map[string]any{},
		Columns: []string{},
	}

	start := time.Now()
	err := e.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		rows, err := conn.QueryxContext(ctx, bounded)
		if err != nil {
			return fmt.Errorf("executing query: %w", err)
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		result.Columns = columns

		for rows.Next() {
			row := map[string]any{}
			if err := rows.MapScan(row); err != nil {
				return err
			}
			result.Rows = append(result.Rows, jsonsafe.Row(row))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	result.ExecutionTimeMS = float64(time.Since(start)) / float64(time.Millisecond)
	result.RowCount = len(result.Rows)
	// A full page is reported as truncated even when the row count happened
	// to land exactly on the limit.
	result.Truncated = limited && limit > 0 && result.RowCount == limit
	if result.Truncated {
		warning := "Results truncated to limit"
		result.Warning = &warning
	}

	e.log.Debug("query executed",
		"rows", result.RowCount,
		"truncated", result.Truncated,
		"elapsed_ms", result.ExecutionTimeMS)
	return result, nil
}

// SampleData returns up to limit rows from a table using the dialect's
// sampling strategy. The adapter SQL runs through Execute, so it inherits
// validation, timing, and normalization; its built-in LIMIT means no second
// cap is injected.
func (e *Executor) SampleData(ctx context.Context, table string, schema *string, limit int) (*meta.QueryResult, error) {
	if limit <= 0 {
		limit = 100
	}
	return e.Execute(ctx, e.ad.SampleQuery(table, schema, limit), limit)
}

// Explain validates the query, runs the dialect's explain statement, and
// parses the plan. Plan parsing never fails; diagnostics degrade to warnings.
func (e *Executor) Explain(ctx context.Context, query string, analyze bool) (*meta.ExplainPlan, error) {
	if !e.ad.Capabilities().ExplainPlans {
		return nil, fmt.Errorf("explain plans not supported by %s", e.ad.Dialect())
	}
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	explainSQL := e.ad.ExplainQuery(query, analyze)
	var planText string
	err := e.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		rows, err := conn.QueryxContext(ctx, explainSQL)
		if err != nil {
			return fmt.Errorf("running explain: %w", err)
		}
		defer rows.Close()

		// Plans come back one line per row in the first column; JSON-format
		// plans arrive as a single row.
		var lines []string
		for rows.Next() {
			cols, err := rows.SliceScan()
			if err != nil {
				return err
			}
			if len(cols) > 0 {
				lines = append(lines, stringify(cols[0]))
			}
		}
		planText = strings.Join(lines, "\n")
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	parsed := e.ad.ParseExplainPlan(planText, analyze)
	return &meta.ExplainPlan{
		Query:           query,
		Plan:            parsed.PlanText,
		PlanJSON:        parsed.JSON,
		EstimatedCost:   parsed.EstimatedCost,
		EstimatedRows:   parsed.EstimatedRows,
		ActualTimeMS:    parsed.ActualTimeMS,
		ActualRows:      parsed.ActualRows,
		Warnings:        parsed.Warnings,
		Recommendations: parsed.Recommendations,
	}, nil
}

// SyntaxCheck is the result of validating a query without executing it.
type SyntaxCheck struct {
	Valid bool    `json:"valid"`
	Error *string `json:"error,omitempty"`
}

// CheckSyntax validates a query textually. No database round trip occurs.
func (e *Executor) CheckSyntax(query string) SyntaxCheck {
	if err := ValidateQuery(query); err != nil {
		msg := err.Error()
		return SyntaxCheck{Valid: false, Error: &msg}
	}
	return SyntaxCheck{Valid: true}
}

func stringify(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
