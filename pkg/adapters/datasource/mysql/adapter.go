// Package mysql is a datasource adapter for MySQL and MariaDB.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

const driverName = "mysql"

// Adapter runs statements against MySQL, one connection per call.
type Adapter struct {
	config *Config
	dsn    string
	logger *zap.Logger
}

// NewAdapter creates a MySQL adapter.
func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	dsn, err := cfg.ConnectionString()
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, dsn: dsn, logger: logger.Named("mysql")}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	return datasource.PingOnce(ctx, driverName, a.dsn, "SELECT 1")
}

// Query implements datasource.QueryExecutor.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	return datasource.QueryOnce(ctx, driverName, a.dsn, sqlQuery, limit, nil, a.logger)
}

// ExtractSchema reads INFORMATION_SCHEMA.COLUMNS for the connected database,
// or for the schemas named in filter. Keys are SCHEMA.TABLE.
func (a *Adapter) ExtractSchema(ctx context.Context, filter datasource.SchemaFilter) (*schema.Catalog, error) {
	query := `
		SELECT c.TABLE_SCHEMA, c.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t
		  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE t.TABLE_TYPE = 'BASE TABLE'`
	var args []any
	if len(filter.Schemas) == 0 {
		query += " AND c.TABLE_SCHEMA = DATABASE()"
	} else {
		query += " AND c.TABLE_SCHEMA IN (?" + repeatPlaceholders(len(filter.Schemas)-1) + ")"
		for _, s := range filter.Schemas {
			args = append(args, s)
		}
	}
	query += " ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION"

	columns, err := datasource.ReadColumns(ctx, driverName, a.dsn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("extract mysql schema: %w", err)
	}

	cat := datasource.BuildCatalog(columns, filter, true)
	a.logger.Info("Extracted schema", zap.Int("tables", cat.Len()), zap.Int("columns", len(columns)))
	return cat, nil
}

func repeatPlaceholders(n int) string {
	return strings.Repeat(", ?", n)
}

// Dialect implements datasource.Datasource.
func (a *Adapter) Dialect() datasource.Dialect {
	return datasource.DialectMySQL
}

// Close is a no-op; connections never outlive a call.
func (a *Adapter) Close() error {
	return nil
}

var _ datasource.Datasource = (*Adapter)(nil)
