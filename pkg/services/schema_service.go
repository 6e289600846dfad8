package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/retry"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

// SchemaService extracts catalogs from live databases and keeps the snapshot
// files the validator reads.
type SchemaService interface {
	// Extract reads the catalog from the database, retrying transient
	// connection failures.
	Extract(ctx context.Context, ds datasource.SchemaExtractor, filter datasource.SchemaFilter) (*schema.Catalog, error)

	// Refresh extracts and overwrites the snapshot at path.
	Refresh(ctx context.Context, ds datasource.SchemaExtractor, filter datasource.SchemaFilter, path string) (*schema.Catalog, error)

	// Ensure loads the snapshot at path, extracting it first if the file
	// does not exist yet.
	Ensure(ctx context.Context, ds datasource.SchemaExtractor, filter datasource.SchemaFilter, path string) (*schema.Catalog, error)
}

type schemaService struct {
	retryConfig *retry.Config
	logger      *zap.Logger
}

// NewSchemaService creates a schema service. A nil retry config uses
// retry.DefaultConfig.
func NewSchemaService(retryConfig *retry.Config, logger *zap.Logger) SchemaService {
	logger = logger.Named("schema")
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig()
	}
	cfg := *retryConfig
	if cfg.Notify == nil {
		cfg.Notify = func(attempt int, err error, delay time.Duration) {
			logger.Warn("Schema extraction failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		}
	}
	return &schemaService{retryConfig: &cfg, logger: logger}
}

var _ SchemaService = (*schemaService)(nil)

func (s *schemaService) Extract(ctx context.Context, ds datasource.SchemaExtractor, filter datasource.SchemaFilter) (*schema.Catalog, error) {
	start := time.Now()
	catalog, err := retry.DoWithResult(ctx, s.retryConfig, func() (*schema.Catalog, error) {
		return ds.ExtractSchema(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract schema: %w", err)
	}
	s.logger.Info("Schema extracted",
		zap.Int("tables", catalog.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return catalog, nil
}

func (s *schemaService) Refresh(ctx context.Context, ds datasource.SchemaExtractor, filter datasource.SchemaFilter, path string) (*schema.Catalog, error) {
	catalog, err := s.Extract(ctx, ds, filter)
	if err != nil {
		return nil, err
	}
	if err := schema.Save(path, catalog); err != nil {
		return nil, fmt.Errorf("failed to save schema snapshot: %w", err)
	}
	s.logger.Info("Schema snapshot written", zap.String("path", path))
	return catalog, nil
}

func (s *schemaService) Ensure(ctx context.Context, ds datasource.SchemaExtractor, filter datasource.SchemaFilter, path string) (*schema.Catalog, error) {
	catalog, err := schema.Load(path)
	if err == nil {
		return catalog, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	s.logger.Info("No schema snapshot, extracting", zap.String("path", path))
	return s.Refresh(ctx, ds, filter, path)
}
