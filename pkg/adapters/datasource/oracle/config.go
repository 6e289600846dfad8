package oracle

import (
	"fmt"
	"strconv"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

// Config contains Oracle-specific connection options.
type Config struct {
	Host     string
	Port     int
	Service  string // service name, e.g. ORCLPDB1
	User     string
	Password string
	Owner    string // schema owner for table discovery; empty reads the user's own tables
	Options  map[string]string
}

// DefaultPort returns the default Oracle listener port.
func DefaultPort() int {
	return 1521
}

// FromMap creates a Config from a generic config map. A "dsn" entry of the
// form host:port/service is accepted in place of host, port and service.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Port: DefaultPort()}

	if dsn, ok := datasource.StringOption(config, "dsn"); ok {
		host, port, service, err := parseEasyConnect(dsn)
		if err != nil {
			return nil, err
		}
		cfg.Host, cfg.Port, cfg.Service = host, port, service
	} else {
		host, ok := datasource.StringOption(config, "host")
		if !ok {
			return nil, fmt.Errorf("host or dsn is required")
		}
		cfg.Host = host
		port, set, err := datasource.IntOption(config, "port")
		if err != nil {
			return nil, err
		}
		if set {
			cfg.Port = port
		}
		service, ok := datasource.StringOption(config, "service", "service_name", "database")
		if !ok {
			return nil, fmt.Errorf("service is required")
		}
		cfg.Service = service
	}

	user, ok := datasource.StringOption(config, "user", "username")
	if !ok {
		return nil, fmt.Errorf("user is required")
	}
	cfg.User = user
	cfg.Password, _ = datasource.StringOption(config, "password")
	cfg.Owner, _ = datasource.StringOption(config, "owner", "schema")

	if opts, ok := config["options"].(map[string]string); ok {
		cfg.Options = opts
	}
	return cfg, nil
}

// ConnectionString builds a go-ora URL with credentials escaped.
func (c *Config) ConnectionString() string {
	return go_ora.BuildUrl(c.Host, c.Port, c.Service, c.User, c.Password, c.Options)
}

// parseEasyConnect splits host[:port]/service.
func parseEasyConnect(dsn string) (string, int, string, error) {
	hostPort, service, ok := strings.Cut(strings.TrimPrefix(dsn, "//"), "/")
	if !ok || hostPort == "" || service == "" {
		return "", 0, "", fmt.Errorf("dsn must look like host:port/service, got %q", dsn)
	}

	host, portStr, hasPort := strings.Cut(hostPort, ":")
	port := DefaultPort()
	if hasPort {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, "", fmt.Errorf("invalid port in dsn %q", dsn)
		}
		port = p
	}
	return host, port, service, nil
}
