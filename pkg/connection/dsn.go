package connection

import (
	"fmt"
	"net/url"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/txn2/mcp-db-explorer/pkg/dialect"
)

// BuildDSN converts a configured URL into the driver-native DSN for the
// canonical dialect, remapping TLS indicators into each driver's vocabulary.
func BuildDSN(rawURL string, d dialect.Dialect) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing database url: %w", err)
	}

	switch d {
	case dialect.Postgres:
		return postgresDSN(u), nil
	case dialect.MySQL:
		return mysqlDSN(u)
	case dialect.ClickHouse:
		return clickhouseDSN(u), nil
	}
	return "", fmt.Errorf("unsupported dialect %q", d)
}

// postgresDSN canonicalizes the scheme for lib/pq, which accepts URL-form
// DSNs with sslmode inline.
func postgresDSN(u *url.URL) string {
	out := *u
	out.Scheme = "postgres"
	return out.String()
}

// mysqlDSN converts a URL into the go-sql-driver DSN format. The generic
// sslmode parameter does not exist in this driver; its intent is carried over
// to the tls connection option.
func mysqlDSN(u *url.URL) (string, error) {
	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			cfg.Passwd = pw
		}
	}
	cfg.ParseTime = true

	q := u.Query()
	if mode := sslModeFrom(q); mode != "" {
		switch mode {
		case "require", "verify-ca", "verify-full":
			cfg.TLSConfig = "true"
		case "prefer", "allow":
			cfg.TLSConfig = "preferred"
		case "disable":
			cfg.TLSConfig = "false"
		default:
			return "", fmt.Errorf("unsupported sslmode %q for mysql", mode)
		}
	}
	return cfg.FormatDSN(), nil
}

// clickhouseDSN canonicalizes the scheme for clickhouse-go and remaps the
// generic sslmode parameter to the driver's secure/skip_verify options.
func clickhouseDSN(u *url.URL) string {
	out := *u
	out.Scheme = "clickhouse"

	q := out.Query()
	if mode := sslModeFrom(q); mode != "" {
		q.Del("sslmode")
		q.Del("ssl")
		switch mode {
		case "require", "verify-ca", "verify-full":
			q.Set("secure", "true")
		case "prefer", "allow":
			q.Set("secure", "true")
			q.Set("skip_verify", "true")
		case "disable":
			q.Set("secure", "false")
		}
		out.RawQuery = q.Encode()
	}
	return out.String()
}

// sslModeFrom reads the TLS intent from either the sslmode or ssl query
// parameter, normalizing boolean spellings to sslmode vocabulary.
func sslModeFrom(q url.Values) string {
	if mode := q.Get("sslmode"); mode != "" {
		return strings.ToLower(mode)
	}
	switch strings.ToLower(q.Get("ssl")) {
	case "true", "1", "require":
		return "require"
	case "false", "0", "disable":
		return "disable"
	}
	return ""
}
