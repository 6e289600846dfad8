package mssql

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

// Authentication methods.
const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// AuthMethod is "sql" or "service_principal".
	AuthMethod string

	// SQL Authentication fields
	Username string
	Password string

	// Service Principal (Azure AD) fields
	TenantID     string
	ClientID     string
	ClientSecret string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map and auto-detects auth method.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}

	host, ok := datasource.StringOption(config, "host", "server")
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

	database, ok := datasource.StringOption(config, "database", "name")
	if !ok {
		return nil, fmt.Errorf("database is required")
	}
	cfg.Database = database

	if encrypt, ok := datasource.BoolOption(config, "encrypt"); ok {
		cfg.Encrypt = encrypt
	} else if s, ok := config["encrypt"].(string); ok && s == "strict" {
		cfg.Encrypt = true
	}
	if trust, ok := datasource.BoolOption(config, "trust_server_certificate"); ok {
		cfg.TrustServerCertificate = trust
	}
	timeout, set, err := datasource.IntOption(config, "connection_timeout")
	if err != nil {
		return nil, err
	}
	if set {
		cfg.ConnectionTimeout = timeout
	}

	// Auto-detect auth method or use explicitly provided
	if authMethod, ok := datasource.StringOption(config, "auth_method"); ok {
		cfg.AuthMethod = authMethod
	} else if _, ok := datasource.StringOption(config, "client_id"); ok {
		cfg.AuthMethod = AuthServicePrincipal
	} else if _, ok := datasource.StringOption(config, "username", "user"); ok {
		cfg.AuthMethod = AuthSQL
	} else {
		return nil, fmt.Errorf("could not auto-detect auth method; no credentials provided")
	}

	switch cfg.AuthMethod {
	case AuthSQL:
		cfg.Username, _ = datasource.StringOption(config, "username", "user")
		cfg.Password, _ = datasource.StringOption(config, "password")
	case AuthServicePrincipal:
		cfg.TenantID, _ = datasource.StringOption(config, "tenant_id")
		cfg.ClientID, _ = datasource.StringOption(config, "client_id")
		cfg.ClientSecret, _ = datasource.StringOption(config, "client_secret")
	default:
		return nil, fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", cfg.AuthMethod)
	}

	return cfg, cfg.Validate()
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case AuthSQL:
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case AuthServicePrincipal:
		if c.TenantID == "" {
			return fmt.Errorf("tenant_id is required for service principal")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required for service principal")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required for service principal")
		}
	default:
		return fmt.Errorf("invalid auth method: %s", c.AuthMethod)
	}

	return nil
}

// DriverName is "azuresql" for Azure AD authentication and "sqlserver" otherwise.
func (c *Config) DriverName() string {
	if c.AuthMethod == AuthServicePrincipal {
		return "azuresql"
	}
	return "sqlserver"
}

// ConnectionString builds a sqlserver:// URL with credentials escaped.
func (c *Config) ConnectionString() string {
	query := url.Values{}
	query.Add("database", c.Database)

	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	if c.AuthMethod == AuthServicePrincipal {
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", c.ClientID)
		query.Add("password", c.ClientSecret)
		query.Add("tenant id", c.TenantID)
		return fmt.Sprintf("sqlserver://%s:%d?%s", c.Host, c.Port, query.Encode())
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		query.Encode(),
	)
}
