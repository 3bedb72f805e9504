// Package server provides a factory for creating the MCP server wired to a
// database explorer toolkit.
package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-db-explorer/pkg/connection"
	"github.com/txn2/mcp-db-explorer/pkg/explorer"
	"github.com/txn2/mcp-db-explorer/pkg/toolkit"
)

// Version is set at build time.
var Version = "dev"

// New builds the MCP server and its toolkit from a loaded configuration. The
// database connection is opened and verified before any tool is registered.
func New(ctx context.Context, cfg *explorer.Config) (*mcp.Server, *toolkit.Toolkit, error) {
	log := explorer.NewLogger(cfg.Logging)

	mgr, err := connection.NewManager(cfg.Connection(), log)
	if err != nil {
		return nil, nil, err
	}
	if err := mgr.Initialize(ctx); err != nil {
		return nil, nil, fmt.Errorf("initializing database connection: %w", err)
	}

	tk, err := toolkit.New(cfg.Server.Name, mgr, log)
	if err != nil {
		_ = mgr.Close()
		return nil, nil, err
	}

	version := cfg.Server.Version
	if version == "" {
		version = Version
	}
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: version,
	}, nil)
	tk.RegisterTools(srv)

	log.Info("server ready",
		"dialect", mgr.Dialect().String(),
		"tools", len(tk.Tools()))
	return srv, tk, nil
}

// NewWithConfig loads configuration from a file and builds the server.
func NewWithConfig(ctx context.Context, path string) (*mcp.Server, *toolkit.Toolkit, error) {
	cfg, err := explorer.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	return New(ctx, cfg)
}

// NewWithDefaults builds the server from environment variables alone.
func NewWithDefaults(ctx context.Context) (*mcp.Server, *toolkit.Toolkit, error) {
	cfg, err := explorer.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	return New(ctx, cfg)
}
