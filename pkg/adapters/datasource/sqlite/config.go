package sqlite

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

// Config points at a SQLite database file.
type Config struct {
	Path     string
	ReadOnly bool
}

// FromMap creates a Config from a generic config map. Databases open
// read-only unless read_only is explicitly false.
func FromMap(config map[string]any) (*Config, error) {
	path, ok := datasource.StringOption(config, "path", "dsn", "file")
	if !ok {
		return nil, fmt.Errorf("path is required")
	}
	cfg := &Config{Path: path, ReadOnly: true}
	if ro, ok := datasource.BoolOption(config, "read_only"); ok {
		cfg.ReadOnly = ro
	}
	return cfg, nil
}

// ConnectionString returns a file: URI for the modernc driver. In-memory
// databases are rejected because every call opens a fresh handle.
func (c *Config) ConnectionString() (string, error) {
	dsn := c.Path
	if dsn == ":memory:" || dsn == "file::memory:" || strings.Contains(dsn, "mode=memory") {
		return "", fmt.Errorf("in-memory SQLite databases are not supported (each call opens a separate DB)")
	}

	if !strings.HasPrefix(dsn, "file:") {
		if !c.ReadOnly {
			return "file:" + dsn, nil
		}
		return "file:" + dsn + "?mode=ro", nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	if c.ReadOnly {
		q := u.Query()
		q.Set("mode", "ro")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
