// Package explorer loads and validates the server configuration from a YAML
// file and the environment. Environment variables fill any field the file
// leaves unset; the file wins when both are present.
package explorer

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/txn2/mcp-db-explorer/pkg/connection"
)

// Config holds the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the MCP server surface.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // "stdio", "http"
	Address   string `yaml:"address"`
}

// DatabaseConfig configures the explored database. ReadOnly is a pointer so
// an absent field defaults to true rather than false.
type DatabaseConfig struct {
	URL              string `yaml:"url"`
	PoolSize         int    `yaml:"pool_size"`
	MaxOverflow      int    `yaml:"max_overflow"`
	PoolTimeout      int    `yaml:"pool_timeout"`
	ReadOnly         *bool  `yaml:"read_only"`
	StatementTimeout int    `yaml:"statement_timeout"`
	Echo             bool   `yaml:"echo"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// LoadConfig loads configuration from a file, expanding ${VAR} references.
// The path comes from command line arguments, controlled by the operator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds a configuration entirely from the environment, for running
// without a config file.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyEnv fills unset fields from the environment.
func applyEnv(cfg *Config) {
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.PoolSize == 0 {
		cfg.Database.PoolSize = envInt("DB_POOL_SIZE")
	}
	if cfg.Database.MaxOverflow == 0 {
		cfg.Database.MaxOverflow = envInt("DB_MAX_OVERFLOW")
	}
	if cfg.Database.PoolTimeout == 0 {
		cfg.Database.PoolTimeout = envInt("DB_POOL_TIMEOUT")
	}
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = envInt("DB_STATEMENT_TIMEOUT")
	}
	if cfg.Database.ReadOnly == nil {
		if v, ok := envBool("DB_READ_ONLY"); ok {
			cfg.Database.ReadOnly = &v
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = os.Getenv("LOG_LEVEL")
	}
}

// applyDefaults fills remaining zero values. Read-only defaults to true; the
// explorer never mutates data unless the operator opts out explicitly.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "mcp-db-explorer"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Database.ReadOnly == nil {
		readOnly := true
		cfg.Database.ReadOnly = &readOnly
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate fails fast on a missing URL or malformed pool settings.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (set database.url or DATABASE_URL)")
	}
	conn := c.Connection()
	if err := conn.ApplyDefaults().Validate(); err != nil {
		return err
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown transport %q (expected stdio or http)", c.Server.Transport)
	}
	return nil
}

// Connection converts the database section into a connection.Config.
func (c *Config) Connection() connection.Config {
	readOnly := true
	if c.Database.ReadOnly != nil {
		readOnly = *c.Database.ReadOnly
	}
	return connection.Config{
		URL:              c.Database.URL,
		PoolSize:         c.Database.PoolSize,
		MaxOverflow:      c.Database.MaxOverflow,
		PoolTimeout:      c.Database.PoolTimeout,
		ReadOnly:         readOnly,
		StatementTimeout: c.Database.StatementTimeout,
		Echo:             c.Database.Echo,
	}
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
