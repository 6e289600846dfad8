// Package sqlite is a datasource adapter for SQLite files, using the pure Go
// modernc driver. It is handy as a local primary or secondary source and is
// what the end-to-end tests run against.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

const driverName = "sqlite"

// Adapter runs statements against a SQLite file, one handle per call.
type Adapter struct {
	config *Config
	dsn    string
	logger *zap.Logger
}

// NewAdapter creates a SQLite adapter.
func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	dsn, err := cfg.ConnectionString()
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, dsn: dsn, logger: logger.Named("sqlite")}, nil
}

// TestConnection verifies the file opens and answers a trivial query.
func (a *Adapter) TestConnection(ctx context.Context) error {
	return datasource.PingOnce(ctx, driverName, a.dsn, "SELECT 1")
}

// Query implements datasource.QueryExecutor.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	return datasource.QueryOnce(ctx, driverName, a.dsn, sqlQuery, limit, strings.ToUpper, a.logger)
}

// ExtractSchema lists user tables from sqlite_master with their columns from
// pragma_table_info. Keys are bare table names.
func (a *Adapter) ExtractSchema(ctx context.Context, filter datasource.SchemaFilter) (*schema.Catalog, error) {
	columns, err := datasource.ReadColumns(ctx, driverName, a.dsn, `
		SELECT 'main', m.name, p.name, p.type
		FROM sqlite_master m
		JOIN pragma_table_info(m.name) p
		WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, p.cid`)
	if err != nil {
		return nil, fmt.Errorf("extract sqlite schema: %w", err)
	}

	cat := datasource.BuildCatalog(columns, filter, false)
	a.logger.Info("Extracted schema", zap.Int("tables", cat.Len()), zap.Int("columns", len(columns)))
	return cat, nil
}

// Dialect implements datasource.Datasource.
func (a *Adapter) Dialect() datasource.Dialect {
	return datasource.DialectSQLite
}

// Close is a no-op; handles never outlive a call.
func (a *Adapter) Close() error {
	return nil
}

var _ datasource.Datasource = (*Adapter)(nil)
