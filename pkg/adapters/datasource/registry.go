package datasource

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string  `json:"type"`         // "oracle", "mssql", "postgres"
	DisplayName string  `json:"display_name"` // "Oracle Database", "Microsoft SQL Server"
	Description string  `json:"description"`
	Dialect     Dialect `json:"dialect"`
}

// AdapterRegistration contains info + the factory for creating an adapter.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory func(config map[string]any, logger *zap.Logger) (Datasource, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// Open builds the adapter registered under dsType. A nil logger is replaced
// with a no-op logger.
func Open(dsType string, config map[string]any, logger *zap.Logger) (Datasource, error) {
	registryMu.RLock()
	reg, ok := registry[dsType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported datasource type: %s", dsType)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return reg.Factory(config, logger)
}
