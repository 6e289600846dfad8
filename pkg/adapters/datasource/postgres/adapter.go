// Package postgres is a datasource adapter for PostgreSQL built on pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

// Adapter provides PostgreSQL connectivity, one pgx connection per call.
type Adapter struct {
	config *Config
	logger *zap.Logger
}

// NewAdapter creates a PostgreSQL adapter.
func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Database == "" {
		return nil, fmt.Errorf("invalid config: host, user and database are required")
	}
	return &Adapter{config: cfg, logger: logger.Named("postgres")}, nil
}

func (a *Adapter) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, a.config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}
	return conn, nil
}

// TestConnection verifies the database is reachable with valid credentials
// and that the session landed in the configured database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var currentDB string
	if err := conn.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}
	// PostgreSQL database names are case-sensitive, but we'll do case-insensitive comparison
	// to match MSSQL behavior and handle common configuration issues
	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}
	return nil
}

// Query implements datasource.QueryExecutor.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	if limit <= 0 {
		limit = datasource.MaxQueryLimit
	}

	conn, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	start := time.Now()
	rows, err := conn.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: fd.Name,
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	result := &datasource.QueryExecutionResult{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = normalizePgValue(values[i], col.Type)
		}
		result.Rows = append(result.Rows, rowMap)
	}
	if !result.Truncated {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
	}
	result.RowCount = len(result.Rows)

	a.logger.Debug("Query completed",
		zap.String("sql", logging.TruncateQuery(sqlQuery, 200)),
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// normalizePgValue turns pgx composite values into plain numbers and strings.
func normalizePgValue(v any, typeName string) any {
	if n, ok := v.(pgtype.Numeric); ok {
		if !n.Valid {
			return nil
		}
		if i, err := n.Int64Value(); err == nil && i.Valid && n.Exp >= 0 {
			return i.Int64
		}
		if f, err := n.Float64Value(); err == nil && f.Valid {
			return f.Float64
		}
	}
	return datasource.NormalizeValue(v, typeName)
}

// ExtractSchema reads information_schema.columns for user schemas. Keys are
// SCHEMA.TABLE.
func (a *Adapter) ExtractSchema(ctx context.Context, filter datasource.SchemaFilter) (*schema.Catalog, error) {
	conn, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	query := `
		SELECT c.table_schema, c.table_name, c.column_name, c.data_type
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE t.table_type = 'BASE TABLE'
		  AND c.table_schema NOT IN ('pg_catalog', 'information_schema')`
	var args []any
	if len(filter.Schemas) > 0 {
		query += " AND c.table_schema = ANY($1)"
		args = append(args, filter.Schemas)
	}
	query += " ORDER BY c.table_schema, c.table_name, c.ordinal_position"

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query column metadata: %w", err)
	}
	columns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (datasource.ColumnMetadata, error) {
		var m datasource.ColumnMetadata
		err := row.Scan(&m.SchemaName, &m.TableName, &m.ColumnName, &m.DataType)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("extract postgres schema: %w", err)
	}

	cat := datasource.BuildCatalog(columns, filter, true)
	a.logger.Info("Extracted schema", zap.Int("tables", cat.Len()), zap.Int("columns", len(columns)))
	return cat, nil
}

// Dialect implements datasource.Datasource.
func (a *Adapter) Dialect() datasource.Dialect {
	return datasource.DialectPostgres
}

// Close is a no-op; connections never outlive a call.
func (a *Adapter) Close() error {
	return nil
}

// pgTypeNameFromOID maps PostgreSQL type OIDs to human-readable type names.
// This covers the most common types; unknown types return "UNKNOWN".
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	default:
		return "UNKNOWN"
	}
}

var _ datasource.Datasource = (*Adapter)(nil)
