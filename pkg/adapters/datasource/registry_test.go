package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

type stubDatasource struct {
	config map[string]any
}

func (s *stubDatasource) TestConnection(context.Context) error { return nil }
func (s *stubDatasource) Close() error                         { return nil }
func (s *stubDatasource) Dialect() Dialect                     { return DialectSQLite }
func (s *stubDatasource) ExtractSchema(context.Context, SchemaFilter) (*schema.Catalog, error) {
	return schema.NewCatalog(), nil
}
func (s *stubDatasource) Query(context.Context, string, int) (*QueryExecutionResult, error) {
	return &QueryExecutionResult{}, nil
}

func TestRegistry_OpenRegistered(t *testing.T) {
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "stub-test", DisplayName: "Stub", Dialect: DialectSQLite},
		Factory: func(config map[string]any, logger *zap.Logger) (Datasource, error) {
			if logger == nil {
				return nil, errors.New("logger not defaulted")
			}
			return &stubDatasource{config: config}, nil
		},
	})

	assert.True(t, IsRegistered("stub-test"))

	ds, err := Open("stub-test", map[string]any{"path": "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", ds.(*stubDatasource).config["path"])

	found := false
	for _, info := range RegisteredAdapters() {
		if info.Type == "stub-test" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRegistry_OpenUnknown(t *testing.T) {
	_, err := Open("does-not-exist", nil, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported datasource type")
}

func TestConfigOptions(t *testing.T) {
	config := map[string]any{
		"host":     "",
		"hostname": "db",
		"port":     float64(1433),
		"bad_port": "abc",
		"flag":     "true",
		"odd":      []int{1},
	}

	s, ok := StringOption(config, "host", "hostname")
	assert.True(t, ok)
	assert.Equal(t, "db", s)

	n, set, err := IntOption(config, "port")
	require.NoError(t, err)
	assert.True(t, set)
	assert.Equal(t, 1433, n)

	_, set, err = IntOption(config, "missing")
	assert.NoError(t, err)
	assert.False(t, set)

	_, _, err = IntOption(config, "bad_port")
	assert.Error(t, err)
	_, _, err = IntOption(config, "odd")
	assert.Error(t, err)

	b, ok := BoolOption(config, "flag")
	assert.True(t, ok)
	assert.True(t, b)
}

func TestNormalizeValue(t *testing.T) {
	raw := []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}
	assert.Equal(t, "12345678-9abc-def0-1234-56789abcdef0", NormalizeValue(raw, "UUID"))
	assert.Equal(t, "hello", NormalizeValue([]byte("hello"), "VARCHAR"))
	assert.Equal(t, int64(7), NormalizeValue(int64(7), "INTEGER"))
}
