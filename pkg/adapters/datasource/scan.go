package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"
)

// TypeMapper maps a driver type name to the name reported in ColumnInfo.
type TypeMapper func(databaseTypeName string) string

// ScanRows reads at most limit rows. Byte slices become strings so rows
// serialize as text, and 16-byte driver UUIDs are formatted.
func ScanRows(rows *sql.Rows, limit int, mapType TypeMapper) (*QueryExecutionResult, error) {
	if limit <= 0 {
		limit = MaxQueryLimit
	}

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		typeName := columnTypes[i].DatabaseTypeName()
		if mapType != nil {
			typeName = mapType(typeName)
		}
		columns[i] = ColumnInfo{Name: name, Type: typeName}
	}

	result := &QueryExecutionResult{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			rowMap[col] = NormalizeValue(values[i], columns[i].Type)
		}
		result.Rows = append(result.Rows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// NormalizeValue converts driver values into JSON-friendly ones.
func NormalizeValue(v any, typeName string) any {
	switch val := v.(type) {
	case []byte:
		if len(val) == 16 && (typeName == "UNIQUEIDENTIFIER" || typeName == "UUID") {
			if id, err := uuid.FromBytes(val); err == nil {
				return id.String()
			}
		}
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	}
	return v
}

// QueryOnce opens a database handle, runs one statement, scans its rows and
// closes the handle again. args are passed through to the driver.
func QueryOnce(ctx context.Context, driverName, dsn, sqlQuery string, limit int, mapType TypeMapper, logger *zap.Logger, args ...any) (*QueryExecutionResult, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %s", driverName, logging.SanitizeError(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	start := time.Now()
	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		logger.Debug("Query failed",
			zap.String("sql", logging.TruncateQuery(sqlQuery, 200)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	result, err := ScanRows(rows, limit, mapType)
	if err != nil {
		return nil, err
	}
	logger.Debug("Query completed",
		zap.String("sql", logging.TruncateQuery(sqlQuery, 200)),
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// PingOnce opens a handle, runs probe and closes it.
func PingOnce(ctx context.Context, driverName, dsn, probe string) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open %s connection: %s", driverName, logging.SanitizeError(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := db.QueryRowContext(ctx, probe).Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// ReadColumns runs a column dictionary query whose rows are
// (schema, table, column, type) and collects them.
func ReadColumns(ctx context.Context, driverName, dsn, query string, args ...any) ([]ColumnMetadata, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %s", driverName, logging.SanitizeError(err))
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query column metadata: %w", err)
	}
	defer rows.Close()

	var out []ColumnMetadata
	for rows.Next() {
		var schemaName, tableName, columnName, dataType sql.NullString
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType); err != nil {
			return nil, fmt.Errorf("scan column metadata: %w", err)
		}
		out = append(out, ColumnMetadata{
			SchemaName:      schemaName.String,
			TableName:       tableName.String,
			ColumnName:      columnName.String,
			DataType:        dataType.String,
			OrdinalPosition: len(out) + 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column metadata: %w", err)
	}
	return out, nil
}
