package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_Paginate(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		sql     string
		want    string
	}{
		{
			name:    "oracle offset fetch",
			dialect: DialectOracle,
			sql:     "SELECT USER_NO FROM MEMBERS ORDER BY USER_NO;",
			want:    "SELECT USER_NO FROM MEMBERS ORDER BY USER_NO OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY",
		},
		{
			name:    "sql server adds ordering",
			dialect: DialectSQLServer,
			sql:     "SELECT USER_NO FROM MEMBERS",
			want:    "SELECT USER_NO FROM MEMBERS ORDER BY (SELECT NULL) OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY",
		},
		{
			name:    "sql server keeps ordering",
			dialect: DialectSQLServer,
			sql:     "SELECT USER_NO FROM MEMBERS order by USER_NO",
			want:    "SELECT USER_NO FROM MEMBERS order by USER_NO OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY",
		},
		{
			name:    "postgres limit offset",
			dialect: DialectPostgres,
			sql:     "  SELECT 1  ",
			want:    "SELECT 1 LIMIT 10 OFFSET 20",
		},
		{
			name:    "sqlite limit offset",
			dialect: DialectSQLite,
			sql:     "SELECT 1",
			want:    "SELECT 1 LIMIT 10 OFFSET 20",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Paginate(tt.sql, 20, 10))
		})
	}
}

func TestDialect_Names(t *testing.T) {
	assert.Equal(t, "SQL Server", DialectSQLServer.DisplayName())
	assert.Equal(t, "custom", Dialect("custom").DisplayName())
	assert.Contains(t, DialectOracle.PaginationHint(), "FETCH NEXT")
	assert.Contains(t, DialectMySQL.PaginationHint(), "LIMIT")
}
