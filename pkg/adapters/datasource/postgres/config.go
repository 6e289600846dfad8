package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:    DefaultPort(),
		SSLMode: DefaultSSLMode(),
	}

	host, ok := datasource.StringOption(config, "host")
	if !ok {
		return nil, fmt.Errorf("host is required")
	}
	cfg.Host = host

	port, set, err := datasource.IntOption(config, "port")
	if err != nil {
		return nil, err
	}
	if set {
		cfg.Port = port
	}

	user, ok := datasource.StringOption(config, "user", "username")
	if !ok {
		return nil, fmt.Errorf("user is required")
	}
	cfg.User = user
	cfg.Password, _ = datasource.StringOption(config, "password")

	database, ok := datasource.StringOption(config, "database", "name")
	if !ok {
		return nil, fmt.Errorf("database is required")
	}
	cfg.Database = database

	if sslMode, ok := datasource.StringOption(config, "ssl_mode"); ok {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}

// ConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so passwords containing @, /, #
// or ? do not break URL parsing.
func (c *Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		sslMode,
	)
}
