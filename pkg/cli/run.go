package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/config"
	"github.com/ekaya-inc/ekaya-discovery/pkg/feature"
	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
	"github.com/ekaya-inc/ekaya-discovery/pkg/repositories"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
	"github.com/ekaya-inc/ekaya-discovery/pkg/services"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		featurePath string
		rulesPath   string
		noWarehouse bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover members for every feature-file example and fetch their warehouse rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			con := newConsole(a.out)

			if featurePath == "" {
				featurePath = cfg.Paths.FeatureFile
			}
			if !cmd.Flags().Changed("rules") {
				rulesPath = cfg.Discovery.RulesPath
			}

			examples, err := feature.ParseExamples(featurePath)
			if err != nil {
				return err
			}
			rules, err := config.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			con.Phase("Discovery: %d examples from %s", len(examples), featurePath)
			if len(rules) > 0 {
				con.Info("rules: %d search keys from %s", len(rules), rulesPath)
			}

			stack, err := a.discoveryStack(ctx)
			if err != nil {
				return err
			}
			defer stack.primary.Close()

			var (
				warehouse        datasource.Datasource
				warehouseCatalog *schema.Catalog
			)
			if !noWarehouse && cfg.Templates.WarehouseQuery != "" {
				t, _ := a.target(targetWarehouse)
				if warehouse, err = a.open(t); err != nil {
					return err
				}
				defer warehouse.Close()
				if warehouseCatalog, err = a.catalog(ctx, t, warehouse); err != nil {
					return err
				}
			} else {
				con.Warning("warehouse lookup disabled")
			}

			pcfg := services.PipelineConfig{
				Discovery:          cfg.Discovery,
				Rules:              rules,
				WarehouseTemplate:  cfg.Templates.WarehouseQuery,
				Vars:               cfg.Vars(),
				PrimaryOutputDir:   cfg.Paths.PrimaryOutputDir,
				WarehouseOutputDir: cfg.Paths.WarehouseOutputDir,
				OnExample: func(s *models.RunSummary) {
					con.FinishProgress()
					con.Summary(s)
				},
			}
			// A progress bar only makes sense when examples run one at a time.
			if cfg.Discovery.Concurrency == 1 {
				pcfg.OnPage = func(ex feature.Example, st services.BatchState) {
					target := cfg.Discovery.DesiredCount
					if rule, ok := rules.For(ex.SearchKey()); ok {
						target = rule.Apply(cfg.Discovery).DesiredCount
					}
					con.Progress(ex, st, target)
				}
			}

			pipeline, err := services.NewPipeline(services.PipelineDeps{
				SourceFor:        stack.source.WithFilter,
				Engine:           services.NewDiscoveryEngine(a.logger),
				Warehouse:        warehouse,
				WarehouseCatalog: warehouseCatalog,
				Synthesizer:      stack.synthesizer,
				History:          repositories.NewHistoryRepository(cfg.Paths.History, a.logger),
				Writer:           repositories.NewResultWriter(a.logger),
			}, pcfg, a.logger)
			if err != nil {
				return err
			}

			report, err := pipeline.Run(ctx, examples)
			if report != nil {
				con.Report(report)
			}
			if err != nil {
				return fmt.Errorf("run interrupted: %w", err)
			}
			a.logger.Info("Run complete",
				zap.Int("examples", len(report.Summaries)),
				zap.Float64("cost_usd", report.Usage.CostUSD))
			return nil
		},
	}

	cmd.Flags().StringVarP(&featurePath, "feature", "f", "", "feature file with an Examples table (default from config)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "TOML file with per-search-key overrides (default from config)")
	cmd.Flags().BoolVar(&noWarehouse, "no-warehouse", false, "stop after writing candidates")

	return cmd
}
