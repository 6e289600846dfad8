package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap_HostFields(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":     "ora.internal",
		"port":     float64(1522),
		"service":  "ORCLPDB1",
		"user":     "scott",
		"password": "t@ger/1",
		"owner":    "crm",
	})
	require.NoError(t, err)
	assert.Equal(t, "ora.internal", cfg.Host)
	assert.Equal(t, 1522, cfg.Port)
	assert.Equal(t, "ORCLPDB1", cfg.Service)
	assert.Equal(t, "crm", cfg.Owner)

	url := cfg.ConnectionString()
	assert.Contains(t, url, "oracle://")
	assert.Contains(t, url, "ora.internal:1522/ORCLPDB1")
	assert.NotContains(t, url, "t@ger/1", "password must be escaped")
}

func TestFromMap_EasyConnectDSN(t *testing.T) {
	cfg, err := FromMap(map[string]any{"dsn": "db1:1530/SALES", "user": "u"})
	require.NoError(t, err)
	assert.Equal(t, "db1", cfg.Host)
	assert.Equal(t, 1530, cfg.Port)
	assert.Equal(t, "SALES", cfg.Service)

	cfg, err = FromMap(map[string]any{"dsn": "db1/SALES", "user": "u"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPort(), cfg.Port)
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing host", map[string]any{"service": "S", "user": "u"}},
		{"missing service", map[string]any{"host": "h", "user": "u"}},
		{"missing user", map[string]any{"host": "h", "service": "S"}},
		{"bad dsn", map[string]any{"dsn": "justahost", "user": "u"}},
		{"bad port", map[string]any{"dsn": "h:abc/S", "user": "u"}},
		{"bad port type", map[string]any{"host": "h", "service": "S", "user": "u", "port": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.config)
			assert.Error(t, err)
		})
	}
}
