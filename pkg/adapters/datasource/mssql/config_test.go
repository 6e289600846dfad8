package mssql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap_SQLAuth(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":     "dwh.internal",
		"database": "DWH",
		"user":     "reader",
		"password": "p@ss;word",
		"encrypt":  "false",
	})
	require.NoError(t, err)
	assert.Equal(t, AuthSQL, cfg.AuthMethod)
	assert.Equal(t, DefaultPort(), cfg.Port)
	assert.False(t, cfg.Encrypt)
	assert.Equal(t, "sqlserver", cfg.DriverName())

	conn := cfg.ConnectionString()
	assert.True(t, strings.HasPrefix(conn, "sqlserver://reader:"))
	assert.Contains(t, conn, "@dwh.internal:1433?")
	assert.Contains(t, conn, "database=DWH")
	assert.NotContains(t, conn, "p@ss;word")
}

func TestFromMap_ServicePrincipal(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":          "x.database.windows.net",
		"database":      "DWH",
		"tenant_id":     "t",
		"client_id":     "c",
		"client_secret": "s",
	})
	require.NoError(t, err)
	assert.Equal(t, AuthServicePrincipal, cfg.AuthMethod)
	assert.Equal(t, "azuresql", cfg.DriverName())
	assert.Contains(t, cfg.ConnectionString(), "fedauth=ActiveDirectoryServicePrincipal")
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		want   string
	}{
		{"missing host", map[string]any{"database": "d", "user": "u"}, "host is required"},
		{"missing database", map[string]any{"host": "h", "user": "u"}, "database is required"},
		{"no credentials", map[string]any{"host": "h", "database": "d"}, "auto-detect"},
		{"bad method", map[string]any{"host": "h", "database": "d", "auth_method": "kerberos"}, "invalid auth method"},
		{"incomplete principal", map[string]any{"host": "h", "database": "d", "client_id": "c"}, "tenant_id"},
		{"bad port", map[string]any{"host": "h", "database": "d", "user": "u", "port": 70000}, "invalid port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
