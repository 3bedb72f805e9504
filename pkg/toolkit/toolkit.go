// Package toolkit exposes the explorer's operations as MCP tools. The tool
// set is capability-gated: a dialect that lacks a feature never advertises
// the tool, and the handlers re-check as defense in depth.
package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-db-explorer/pkg/adapter"
	"github.com/txn2/mcp-db-explorer/pkg/analyzer"
	"github.com/txn2/mcp-db-explorer/pkg/connection"
	"github.com/txn2/mcp-db-explorer/pkg/executor"
	"github.com/txn2/mcp-db-explorer/pkg/inspector"
	"github.com/txn2/mcp-db-explorer/pkg/meta"
)

// Tool names.
const (
	ToolDatabaseInfo      = "get_database_info"
	ToolListSchemas       = "list_schemas"
	ToolListTables        = "list_tables"
	ToolDescribeTable     = "describe_table"
	ToolExecuteQuery      = "execute_query"
	ToolSampleData        = "sample_data"
	ToolCheckQuerySyntax  = "check_query_syntax"
	ToolRelationships     = "get_table_relationships"
	ToolAnalyzeColumn     = "analyze_column"
	ToolValueDistribution = "get_value_distribution"
	ToolExplainQuery      = "explain_query"
	ToolProfileDatabase   = "profile_database"
)

// defaultSampleLimit bounds sample_data when the caller does not.
const defaultSampleLimit = 100

// Toolkit wires the explorer components behind MCP tool handlers.
type Toolkit struct {
	name string
	mgr  *connection.Manager
	ad   adapter.Adapter
	insp *inspector.Inspector
	exec *executor.Executor
	an   *analyzer.Analyzer
	log  *slog.Logger
}

// New builds the toolkit over an initialized connection manager.
func New(name string, mgr *connection.Manager, log *slog.Logger) (*Toolkit, error) {
	if log == nil {
		log = slog.Default()
	}
	ad, err := adapter.New(mgr.Dialect(), log)
	if err != nil {
		return nil, err
	}
	return &Toolkit{
		name: name,
		mgr:  mgr,
		ad:   ad,
		insp: inspector.New(mgr, ad, log),
		exec: executor.New(mgr, ad, log),
		an:   analyzer.New(mgr, ad, log),
		log:  log.With("component", "toolkit"),
	}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "db-explorer"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Adapter returns the active dialect adapter.
func (t *Toolkit) Adapter() adapter.Adapter {
	return t.ad
}

// Close releases the connection pool.
func (t *Toolkit) Close() error {
	return t.mgr.Close()
}

// RegisterTools registers the capability-gated tool set with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	caps := t.ad.Capabilities()

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolDatabaseInfo,
		Description: "Get database dialect, version, and supported capabilities.",
	}, t.handleDatabaseInfo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolListSchemas,
		Description: "List user schemas with table counts and sizes. System schemas are excluded.",
	}, t.handleListSchemas)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolListTables,
		Description: "List tables in a schema, optionally including views.",
	}, t.handleListTables)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolDescribeTable,
		Description: "Describe a table: columns, keys, indexes, constraints, and size facts.",
	}, t.handleDescribeTable)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolExecuteQuery,
		Description: "Execute a read-only SQL query (SELECT, WITH, SHOW, DESCRIBE, EXPLAIN). Results are row-limited.",
	}, t.handleExecuteQuery)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolSampleData,
		Description: "Fetch sample rows from a table using the dialect's sampling strategy.",
	}, t.handleSampleData)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolCheckQuerySyntax,
		Description: "Validate a query against the read-only rules without executing it.",
	}, t.handleCheckQuerySyntax)

	if caps.ForeignKeys {
		mcp.AddTool(s, &mcp.Tool{
			Name:        ToolRelationships,
			Description: "Map the foreign key relationships between tables in a schema.",
		}, t.handleRelationships)
	}
	if caps.AdvancedStats {
		mcp.AddTool(s, &mcp.Tool{
			Name:        ToolAnalyzeColumn,
			Description: "Compute column statistics: counts, min/max, percentiles, and most common values.",
		}, t.handleAnalyzeColumn)
		mcp.AddTool(s, &mcp.Tool{
			Name:        ToolValueDistribution,
			Description: "Get the top values of a column with occurrence counts and cardinality.",
		}, t.handleValueDistribution)
	}
	if caps.ExplainPlans {
		mcp.AddTool(s, &mcp.Tool{
			Name:        ToolExplainQuery,
			Description: "Explain a query's execution plan with cost estimates and index warnings.",
		}, t.handleExplainQuery)
	}
	if caps.Profiling {
		mcp.AddTool(s, &mcp.Tool{
			Name:        ToolProfileDatabase,
			Description: "Profile the whole database: schema rollups, largest tables, and index totals.",
		}, t.handleProfileDatabase)
	}
}

// Tools returns the names of the tools this dialect offers.
func (t *Toolkit) Tools() []string {
	caps := t.ad.Capabilities()
	tools := []string{
		ToolDatabaseInfo,
		ToolListSchemas,
		ToolListTables,
		ToolDescribeTable,
		ToolExecuteQuery,
		ToolSampleData,
		ToolCheckQuerySyntax,
	}
	if caps.ForeignKeys {
		tools = append(tools, ToolRelationships)
	}
	if caps.AdvancedStats {
		tools = append(tools, ToolAnalyzeColumn, ToolValueDistribution)
	}
	if caps.ExplainPlans {
		tools = append(tools, ToolExplainQuery)
	}
	if caps.Profiling {
		tools = append(tools, ToolProfileDatabase)
	}
	return tools
}

type emptyInput struct{}

func (t *Toolkit) handleDatabaseInfo(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	version, err := t.mgr.Version(ctx)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	caps := t.ad.Capabilities()
	info := meta.DatabaseInfo{
		Dialect:      t.ad.Dialect().String(),
		Version:      version,
		ReadOnly:     t.mgr.Config().ReadOnly,
		Capabilities: caps.AsMap(),
		Features:     caps.SupportedFeatures(),
	}
	return jsonResult(info)
}

func (t *Toolkit) handleListSchemas(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	schemas, err := t.insp.GetSchemas(ctx)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(map[string]any{"schemas": schemas, "count": len(schemas)})
}

type listTablesInput struct {
	Schema       string `json:"schema,omitempty"`
	IncludeViews bool   `json:"include_views,omitempty"`
}

func (t *Toolkit) handleListTables(ctx context.Context, _ *mcp.CallToolRequest, input listTablesInput) (*mcp.CallToolResult, any, error) {
	listing, err := t.insp.GetTables(ctx, optional(input.Schema), input.IncludeViews)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(listing)
}

type describeTableInput struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
}

func (t *Toolkit) handleDescribeTable(ctx context.Context, _ *mcp.CallToolRequest, input describeTableInput) (*mcp.CallToolResult, any, error) {
	if input.Table == "" {
		return errorResult("table is required"), nil, nil
	}
	info, err := t.insp.DescribeTable(ctx, input.Table, optional(input.Schema))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(info)
}

type executeQueryInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (t *Toolkit) handleExecuteQuery(ctx context.Context, _ *mcp.CallToolRequest, input executeQueryInput) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return errorResult("query is required"), nil, nil
	}
	result, err := t.exec.Execute(ctx, input.Query, input.Limit)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(result)
}

type sampleDataInput struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (t *Toolkit) handleSampleData(ctx context.Context, _ *mcp.CallToolRequest, input sampleDataInput) (*mcp.CallToolResult, any, error) {
	if input.Table == "" {
		return errorResult("table is required"), nil, nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	result, err := t.exec.SampleData(ctx, input.Table, optional(input.Schema), limit)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(result)
}

type checkQueryInput struct {
	Query string `json:"query"`
}

func (t *Toolkit) handleCheckQuerySyntax(_ context.Context, _ *mcp.CallToolRequest, input checkQueryInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(t.exec.CheckSyntax(input.Query))
}

type relationshipsInput struct {
	Schema string `json:"schema,omitempty"`
}

func (t *Toolkit) handleRelationships(ctx context.Context, _ *mcp.CallToolRequest, input relationshipsInput) (*mcp.CallToolResult, any, error) {
	relationships, err := t.insp.GetRelationships(ctx, optional(input.Schema))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(map[string]any{"relationships": relationships, "count": len(relationships)})
}

type analyzeColumnInput struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Schema string `json:"schema,omitempty"`
}

func (t *Toolkit) handleAnalyzeColumn(ctx context.Context, _ *mcp.CallToolRequest, input analyzeColumnInput) (*mcp.CallToolResult, any, error) {
	if input.Table == "" || input.Column == "" {
		return errorResult("table and column are required"), nil, nil
	}
	stats, err := t.an.AnalyzeColumn(ctx, input.Table, input.Column, optional(input.Schema))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(stats)
}

type valueDistributionInput struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Schema string `json:"schema,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (t *Toolkit) handleValueDistribution(ctx context.Context, _ *mcp.CallToolRequest, input valueDistributionInput) (*mcp.CallToolResult, any, error) {
	if input.Table == "" || input.Column == "" {
		return errorResult("table and column are required"), nil, nil
	}
	dist, err := t.an.ValueDistribution(ctx, input.Table, input.Column, optional(input.Schema), input.Limit)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(dist)
}

type explainQueryInput struct {
	Query   string `json:"query"`
	Analyze bool   `json:"analyze,omitempty"`
}

func (t *Toolkit) handleExplainQuery(ctx context.Context, _ *mcp.CallToolRequest, input explainQueryInput) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return errorResult("query is required"), nil, nil
	}
	plan, err := t.exec.Explain(ctx, input.Query, input.Analyze)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(plan)
}

type profileDatabaseInput struct {
	DatabaseName string `json:"database_name,omitempty"`
}

func (t *Toolkit) handleProfileDatabase(ctx context.Context, _ *mcp.CallToolRequest, input profileDatabaseInput) (*mcp.CallToolResult, any, error) {
	name := input.DatabaseName
	if name == "" {
		name = t.databaseName()
	}
	profile, err := t.an.ProfileDatabase(ctx, name)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(profile)
}

// databaseName extracts the database name from the configured URL.
func (t *Toolkit) databaseName() string {
	u, err := url.Parse(t.mgr.Config().URL)
	if err != nil {
		return "database"
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "database"
	}
	return name
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonResult marshals a value into a single text content result.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("internal error marshaling response"), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// Verify interface compliance.
var _ interface {
	Kind() string
	Name() string
	RegisterTools(s *mcp.Server)
	Tools() []string
	Close() error
} = (*Toolkit)(nil)
