// Package oracle is the primary-source adapter for Oracle databases, built on
// the pure Go go-ora driver.
package oracle

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/sijms/go-ora/v2" // registers the "oracle" driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

const driverName = "oracle"

// Adapter runs statements against Oracle, one connection per call.
type Adapter struct {
	config *Config
	dsn    string
	logger *zap.Logger
}

// NewAdapter creates an Oracle adapter. No connection is opened until the
// first call.
func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.Host == "" || cfg.Service == "" || cfg.User == "" {
		return nil, fmt.Errorf("invalid config: host, service and user are required")
	}
	return &Adapter{
		config: cfg,
		dsn:    cfg.ConnectionString(),
		logger: logger.Named("oracle"),
	}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	return datasource.PingOnce(ctx, driverName, a.dsn, "SELECT 1 FROM DUAL")
}

// Query implements datasource.QueryExecutor.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	return datasource.QueryOnce(ctx, driverName, a.dsn, sqlQuery, limit, strings.ToUpper, a.logger)
}

// ExtractSchema reads ALL_TAB_COLUMNS for the configured owner (or the first
// schema in filter), falling back to USER_TAB_COLUMNS. Keys are bare table
// names.
func (a *Adapter) ExtractSchema(ctx context.Context, filter datasource.SchemaFilter) (*schema.Catalog, error) {
	owner := a.config.Owner
	if len(filter.Schemas) > 0 {
		owner = filter.Schemas[0]
	}

	var (
		columns []datasource.ColumnMetadata
		err     error
	)
	if owner != "" {
		columns, err = datasource.ReadColumns(ctx, driverName, a.dsn, `
			SELECT OWNER, TABLE_NAME, COLUMN_NAME, DATA_TYPE
			FROM ALL_TAB_COLUMNS
			WHERE OWNER = :1
			ORDER BY TABLE_NAME, COLUMN_ID`, strings.ToUpper(owner))
	} else {
		columns, err = datasource.ReadColumns(ctx, driverName, a.dsn, `
			SELECT USER, TABLE_NAME, COLUMN_NAME, DATA_TYPE
			FROM USER_TAB_COLUMNS
			ORDER BY TABLE_NAME, COLUMN_ID`)
	}
	if err != nil {
		return nil, fmt.Errorf("extract oracle schema: %w", err)
	}

	cat := datasource.BuildCatalog(columns, filter, false)
	a.logger.Info("Extracted schema",
		zap.String("owner", owner),
		zap.Int("tables", cat.Len()),
		zap.Int("columns", len(columns)))
	return cat, nil
}

// Dialect implements datasource.Datasource.
func (a *Adapter) Dialect() datasource.Dialect {
	return datasource.DialectOracle
}

// Close is a no-op; connections never outlive a call.
func (a *Adapter) Close() error {
	return nil
}

var _ datasource.Datasource = (*Adapter)(nil)
