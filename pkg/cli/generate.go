package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-discovery/pkg/llm"
	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
	"github.com/ekaya-inc/ekaya-discovery/pkg/repositories"
	"github.com/ekaya-inc/ekaya-discovery/pkg/services"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		targetName string
		samplePath string
		execute    bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "generate REQUEST",
		Short: "Turn a natural-language request into a validated SELECT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.target(targetName)
			if err != nil {
				return err
			}
			sample, err := readSample(samplePath)
			if err != nil {
				return err
			}
			client, err := a.llmClient()
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("generate needs an LLM endpoint (llm.endpoint or LLM_API_URL)")
			}

			ds, err := a.open(t)
			if err != nil {
				return err
			}
			defer ds.Close()

			usage := llm.NewUsage()
			ctx := llm.WithUsage(cmd.Context(), usage)
			cat, err := a.catalog(ctx, t, ds)
			if err != nil {
				return err
			}

			examples := a.cfg.Templates.ExampleQueries.Primary
			if t.name == targetWarehouse {
				examples = a.cfg.Templates.ExampleQueries.Warehouse
			}

			con := newConsole(a.out)
			con.Phase("Generating %s query", t.name)

			gen := services.NewQueryGenerator(client, sqlpkg.NewValidator(nil), a.cfg.LLM.Temperature, a.logger)
			out, err := gen.Generate(ctx, services.QueryTarget{
				Name:           t.name,
				Dialect:        ds.Dialect(),
				Catalog:        cat,
				ExampleQueries: examples,
			}, strings.Join(args, " "), sample)
			defer func() {
				snap := usage.Snapshot()
				con.Info("llm: %d calls, $%.4f", snap.Calls, snap.CostUSD)
			}()
			if out != nil {
				fmt.Fprintln(a.out, out.SQL)
				con.Verdict(out.Verdict)
			}
			if err != nil {
				if apperrors.IsRejection(err) {
					return &ExitError{Code: 2}
				}
				return err
			}

			if !execute {
				return nil
			}
			return a.executeGenerated(ctx, con, t, ds, out.SQL, limit)
		},
	}

	cmd.Flags().StringVar(&targetName, "target", targetPrimary, "database to query: primary or warehouse")
	cmd.Flags().StringVar(&samplePath, "sample", "", "candidates JSON file whose rows are shown to the model")
	cmd.Flags().BoolVar(&execute, "execute", false, "run the statement and write its rows")
	cmd.Flags().IntVar(&limit, "limit", 100, "row cap when executing")
	return cmd
}

func (a *app) executeGenerated(ctx context.Context, con *console, t target, ds datasource.QueryExecutor, stmt string, limit int) error {
	res, err := ds.Query(ctx, stmt, limit)
	if err != nil {
		return err
	}
	dir := a.cfg.Paths.PrimaryOutputDir
	if t.name == targetWarehouse {
		dir = a.cfg.Paths.WarehouseOutputDir
	}
	name := fmt.Sprintf("generated_%s.json", time.Now().Format("20060102_150405"))
	path, err := repositories.NewResultWriter(a.logger).Write(dir, name, services.CandidatesFromResult(res))
	if err != nil {
		return err
	}
	if res.Truncated {
		con.Warning("result truncated at %d rows", res.RowCount)
	}
	con.Success("%d rows -> %s", res.RowCount, path)
	return nil
}

// readSample loads rows written by a previous run, e.g. a candidates file.
func readSample(path string) ([]models.Candidate, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	var rows []models.Candidate
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse sample %s: %w", path, err)
	}
	return rows, nil
}
