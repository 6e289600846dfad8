package cli

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/config"
	"github.com/ekaya-inc/ekaya-discovery/pkg/llm"
	"github.com/ekaya-inc/ekaya-discovery/pkg/retry"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
	"github.com/ekaya-inc/ekaya-discovery/pkg/services"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

// Datasource targets accepted by --target.
const (
	targetPrimary   = "primary"
	targetWarehouse = "warehouse"
)

// target bundles one configured database with its snapshot path.
type target struct {
	name         string
	cfg          config.DatasourceConfig
	snapshotPath string
}

func (a *app) target(name string) (target, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case targetPrimary, "oracle":
		return target{name: targetPrimary, cfg: a.cfg.Primary, snapshotPath: a.cfg.Paths.PrimarySchema}, nil
	case targetWarehouse, "dwh":
		return target{name: targetWarehouse, cfg: a.cfg.Warehouse, snapshotPath: a.cfg.Paths.WarehouseSchema}, nil
	default:
		return target{}, fmt.Errorf("unknown target %q (want %s or %s)", name, targetPrimary, targetWarehouse)
	}
}

func (a *app) open(t target) (datasource.Datasource, error) {
	ds, err := datasource.Open(t.cfg.Type, t.cfg.AdapterOptions(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s datasource: %w", t.name, err)
	}
	return ds, nil
}

func (a *app) schemaService() services.SchemaService {
	return services.NewSchemaService(retry.DefaultConfig(), a.logger)
}

// catalog returns the target's schema snapshot, extracting it first when the
// file does not exist yet.
func (a *app) catalog(ctx context.Context, t target, ds datasource.Datasource) (*schema.Catalog, error) {
	cat, err := a.schemaService().Ensure(ctx, ds, t.cfg.SchemaFilter(), t.snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("%s schema: %w", t.name, err)
	}
	return cat, nil
}

// llmClient returns nil when no endpoint is configured; every generation
// step then takes its deterministic fallback.
func (a *app) llmClient() (llm.LLMClient, error) {
	c := a.cfg.LLM
	if !c.Enabled() {
		a.logger.Info("No LLM endpoint configured, using deterministic SQL only")
		return nil, nil
	}
	client, err := llm.NewGuardedFromConfig(&llm.Config{
		Provider:  c.Provider,
		Endpoint:  c.Endpoint,
		Model:     c.Model,
		APIKey:    c.APIKey,
		MaxTokens: c.MaxTokens,
		Timeout:   c.Timeout(),
	}, llm.GuardedConfig{
		Pricing: &llm.Pricing{
			InputPerMillion:  c.InputPricePerMillion,
			OutputPerMillion: c.OutputPricePerMillion,
		},
		TranscriptDir: c.TranscriptDir,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// discoveryStack holds everything wired for a discovery run against the
// primary database.
type discoveryStack struct {
	primary        datasource.Datasource
	primaryCatalog *schema.Catalog
	llm            llm.LLMClient
	validator      *sqlpkg.Validator
	synthesizer    services.BatchSynthesizer
	source         *services.SQLDiscoverySource
}

func (a *app) discoveryStack(ctx context.Context) (*discoveryStack, error) {
	t, _ := a.target(targetPrimary)
	primary, err := a.open(t)
	if err != nil {
		return nil, err
	}
	cat, err := a.catalog(ctx, t, primary)
	if err != nil {
		_ = primary.Close()
		return nil, err
	}
	client, err := a.llmClient()
	if err != nil {
		_ = primary.Close()
		return nil, err
	}

	a.checkTemplateColumns()

	validator := sqlpkg.NewValidator(nil)
	synth := services.NewBatchSynthesizer(client, validator, a.cfg.LLM.Temperature, a.logger)
	d := a.cfg.Discovery
	source, err := services.NewSQLDiscoverySource(services.SQLSourceDeps{
		Primary:        primary,
		PrimaryCatalog: cat,
		Synthesizer:    synth,
		LLM:            client,
		Validator:      validator,
	}, services.SQLSourceConfig{
		PageTemplate:       a.cfg.Templates.ActiveMembers,
		MembershipTemplate: a.cfg.Templates.RegisteredMembers,
		Vars:               a.cfg.Vars(),
		FilterPattern:      d.EmailPattern,
		OrderBy:            d.OrderBy,
		GeneratedPaging:    d.LLMPaging,
		Temperature:        a.cfg.LLM.Temperature,
	}, a.logger)
	if err != nil {
		_ = primary.Close()
		return nil, err
	}

	return &discoveryStack{
		primary:        primary,
		primaryCatalog: cat,
		llm:            client,
		validator:      validator,
		synthesizer:    synth,
		source:         source,
	}, nil
}

// checkTemplateColumns warns when the active-members template does not
// select the identity or join key; discovery cannot match or look up rows
// without them.
func (a *app) checkTemplateColumns() {
	d := a.cfg.Discovery
	for _, col := range sqlpkg.MissingOutputColumns(a.cfg.Templates.ActiveMembers, d.IdentityKey, d.JoinKey) {
		a.logger.Warn("active_members template does not select a key column", zap.String("column", col))
	}
}
