package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

// Config contains MySQL connection options. Either DSN or Host/User/Database
// must be set; an explicit DSN wins.
type Config struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	TLS      string // "", "true", "skip-verify", "preferred"
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Port: DefaultPort()}

	if dsn, ok := datasource.StringOption(config, "dsn"); ok {
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		if parsed.DBName == "" {
			return nil, fmt.Errorf("mysql dsn must name a database")
		}
		cfg.DSN = dsn
		cfg.User = parsed.User
		cfg.Database = parsed.DBName
		if host, port, err := net.SplitHostPort(parsed.Addr); err == nil {
			cfg.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Port = p
			}
		}
		return cfg, nil
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
	cfg.TLS, _ = datasource.StringOption(config, "tls")

	return cfg, nil
}

// ConnectionString renders the driver DSN with time parsing in UTC and
// client-side parameter interpolation.
func (c *Config) ConnectionString() (string, error) {
	var mc *mysql.Config
	if c.DSN != "" {
		parsed, err := mysql.ParseDSN(c.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc = parsed
	} else {
		mc = mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.User = c.User
		mc.Passwd = c.Password
		mc.DBName = c.Database
		if c.TLS != "" {
			mc.TLSConfig = c.TLS
		}
	}
	mc.ParseTime = true
	mc.InterpolateParams = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}
