package connection

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
)

// Defaults and bounds for pool configuration.
const (
	defaultPoolSize         = 5
	defaultMaxOverflow      = 10
	defaultPoolTimeout      = 30
	defaultStatementTimeout = 30

	maxPoolSize         = 50
	maxMaxOverflow      = 100
	maxPoolTimeout      = 300
	maxStatementTimeout = 3600
)

// Config holds validated connection settings. Constructed once at startup
// and immutable thereafter.
type Config struct {
	URL              string `yaml:"url"`
	PoolSize         int    `yaml:"pool_size"`
	MaxOverflow      int    `yaml:"max_overflow"`
	PoolTimeout      int    `yaml:"pool_timeout"`       // seconds
	ReadOnly         bool   `yaml:"read_only"`
	StatementTimeout int    `yaml:"statement_timeout"`  // seconds
	Echo             bool   `yaml:"echo"`
}

// ApplyDefaults fills zero-valued pool settings with their defaults. ReadOnly
// defaults are applied by the configuration loader, which knows whether the
// field was present.
func (c Config) ApplyDefaults() Config {
	if c.PoolSize == 0 {
		c.PoolSize = defaultPoolSize
	}
	if c.MaxOverflow == 0 {
		c.MaxOverflow = defaultMaxOverflow
	}
	if c.PoolTimeout == 0 {
		c.PoolTimeout = defaultPoolTimeout
	}
	if c.StatementTimeout == 0 {
		c.StatementTimeout = defaultStatementTimeout
	}
	return c
}

// Validate checks the URL and pool bounds. A bad URL or out-of-range setting
// fails fast at construction time.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("database url is required")
	}
	if _, err := c.Dialect(); err != nil {
		return err
	}
	if c.PoolSize < 1 || c.PoolSize > maxPoolSize {
		return fmt.Errorf("pool_size %d out of range [1, %d]", c.PoolSize, maxPoolSize)
	}
	if c.MaxOverflow < 0 || c.MaxOverflow > maxMaxOverflow {
		return fmt.Errorf("max_overflow %d out of range [0, %d]", c.MaxOverflow, maxMaxOverflow)
	}
	if c.PoolTimeout < 1 || c.PoolTimeout > maxPoolTimeout {
		return fmt.Errorf("pool_timeout %d out of range [1, %d]", c.PoolTimeout, maxPoolTimeout)
	}
	if c.StatementTimeout < 1 || c.StatementTimeout > maxStatementTimeout {
		return fmt.Errorf("statement_timeout %d out of range [1, %d]", c.StatementTimeout, maxStatementTimeout)
	}
	return nil
}

// Dialect resolves the canonical dialect from the URL scheme, normalizing
// aliases such as "postgres", "pg", and "mariadb".
func (c Config) Dialect() (dialect.Dialect, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parsing database url: %w", err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("database url %q has no scheme", c.URL)
	}
	return dialect.Normalize(u.Scheme)
}
