package mysql

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
			Description: "Connect to MySQL 8+ and MariaDB",
			Dialect:     datasource.DialectMySQL,
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
