// Package mssql is the warehouse adapter for SQL Server and Azure SQL.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

// Adapter provides SQL Server connectivity with SQL or Azure AD authentication.
// Every call opens and closes its own connection.
type Adapter struct {
	config *Config
	dsn    string
	logger *zap.Logger
}

// NewAdapter creates a SQL Server adapter with the given config.
func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Adapter{
		config: cfg,
		dsn:    cfg.ConnectionString(),
		logger: logger.Named("mssql"),
	}, nil
}

// TestConnection verifies the server is reachable and that the session is in
// the configured database rather than the login's default one.
func (a *Adapter) TestConnection(ctx context.Context) error {
	db, err := sql.Open(a.config.DriverName(), a.dsn)
	if err != nil {
		return fmt.Errorf("open connection: %s", logging.SanitizeError(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var currentDB string
	if err := db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}
	return nil
}

// Query implements datasource.QueryExecutor.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	return datasource.QueryOnce(ctx, a.config.DriverName(), a.dsn, sqlQuery, limit, mapSQLServerType, a.logger)
}

// TempKeysTable implements datasource.TempKeysExecutor.
func (a *Adapter) TempKeysTable() (string, map[string]string) {
	return TempKeysTable, TempTableColumns
}

// QueryWithTempKeys loads keys into a #members(member_id BIGINT) temp table
// and runs sqlQuery in the same session, so the statement can join against
// it. The temp table is dropped before returning.
func (a *Adapter) QueryWithTempKeys(ctx context.Context, keys []any, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	ids, err := parseKeys(keys)
	if err != nil {
		return nil, fmt.Errorf("temp table keys: %w", err)
	}

	db, err := sql.Open(a.config.DriverName(), a.dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection: %s", logging.SanitizeError(err))
	}
	defer db.Close()

	// Temp tables are session scoped; every statement must share one connection.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "CREATE TABLE "+TempKeysTable+" (member_id BIGINT)"); err != nil {
		return nil, fmt.Errorf("create temp table: %w", err)
	}
	defer func() {
		dropCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(dropCtx, "DROP TABLE "+TempKeysTable); err != nil {
			a.logger.Warn("Failed to drop temp table", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	for _, stmt := range insertKeysStatements(ids) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("load temp table: %w", err)
		}
	}

	rows, err := conn.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	result, err := datasource.ScanRows(rows, limit, mapSQLServerType)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Temp table query completed",
		zap.Int("keys", len(ids)),
		zap.Int("rows", result.RowCount),
		zap.String("sql", logging.TruncateQuery(sqlQuery, 200)))
	return result, nil
}

// ExtractSchema reads INFORMATION_SCHEMA.COLUMNS for base tables. Keys are
// SCHEMA.TABLE. Without any table filter only the first 20 tables are read.
func (a *Adapter) ExtractSchema(ctx context.Context, filter datasource.SchemaFilter) (*schema.Catalog, error) {
	query := `
		SELECT c.TABLE_SCHEMA, c.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t
		  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE t.TABLE_TYPE = 'BASE TABLE'`
	var args []any
	if len(filter.Schemas) > 0 {
		placeholders := make([]string, len(filter.Schemas))
		for i, s := range filter.Schemas {
			placeholders[i] = fmt.Sprintf("@p%d", i+1)
			args = append(args, s)
		}
		query += " AND c.TABLE_SCHEMA IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION"

	columns, err := datasource.ReadColumns(ctx, a.config.DriverName(), a.dsn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("extract sql server schema: %w", err)
	}

	if filter.IsEmpty() {
		filter.MaxTables = defaultTableCap
		a.logger.Info("No table filter given, capping schema extraction", zap.Int("max_tables", defaultTableCap))
	}
	cat := datasource.BuildCatalog(columns, filter, true)
	a.logger.Info("Extracted schema", zap.Int("tables", cat.Len()), zap.Int("columns", len(columns)))
	return cat, nil
}

// Dialect implements datasource.Datasource.
func (a *Adapter) Dialect() datasource.Dialect {
	return datasource.DialectSQLServer
}

// Close is a no-op; connections never outlive a call.
func (a *Adapter) Close() error {
	return nil
}

var (
	_ datasource.Datasource       = (*Adapter)(nil)
	_ datasource.TempKeysExecutor = (*Adapter)(nil)
)
