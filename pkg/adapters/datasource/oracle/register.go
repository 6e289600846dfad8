package oracle

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "oracle",
			DisplayName: "Oracle Database",
			Description: "Connect to Oracle 12c+ with a service name",
			Dialect:     datasource.DialectOracle,
		},
		Factory: func(config map[string]any, logger *zap.Logger) (datasource.Datasource, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg, logger)
		},
	})
}
