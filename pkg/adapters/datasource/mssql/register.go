package mssql

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database",
			Dialect:     datasource.DialectSQLServer,
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
