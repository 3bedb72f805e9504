package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-db-explorer/pkg/explorer"
)

func TestVersionDefault(t *testing.T) {
	assert.Equal(t, "dev", Version)
}

func TestNew_UnsupportedDialect(t *testing.T) {
	cfg := &explorer.Config{}
	cfg.Server.Name = "test"
	cfg.Database.URL = "oracle://u@h:1521/db"

	_, _, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestNew_UnreachableDatabase(t *testing.T) {
	cfg := &explorer.Config{}
	cfg.Server.Name = "test"
	// TEST-NET-1 address; nothing listens there.
	cfg.Database.URL = "postgres://u:p@192.0.2.1:5432/db"
	cfg.Database.PoolTimeout = 1

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := New(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initializing database connection")
}

func TestNewWithConfig_MissingFile(t *testing.T) {
	_, _, err := NewWithConfig(context.Background(), filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestNewWithConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, _, err := NewWithConfig(context.Background(), path)
	require.Error(t, err)
}

func TestNewWithDefaults_MissingURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, _, err := NewWithDefaults(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}
