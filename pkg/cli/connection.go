package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"
	"github.com/ekaya-inc/ekaya-discovery/pkg/retry"
)

// selectedTargets returns the targets picked by --primary/--warehouse; both
// when neither flag is set.
func (a *app) selectedTargets(primary, warehouse bool) []target {
	if !primary && !warehouse {
		primary, warehouse = true, true
	}
	var out []target
	if primary {
		t, _ := a.target(targetPrimary)
		out = append(out, t)
	}
	if warehouse {
		t, _ := a.target(targetWarehouse)
		out = append(out, t)
	}
	return out
}

func newTestConnectionCmd(a *app) *cobra.Command {
	var primary, warehouse bool

	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check that the primary and warehouse databases are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			con := newConsole(a.out)
			con.Phase("Testing connections")

			failed := 0
			for _, t := range a.selectedTargets(primary, warehouse) {
				start := time.Now()
				if err := a.testConnection(cmd.Context(), t); err != nil {
					con.Failure("%s (%s): %s", t.name, t.cfg.Type, logging.SanitizeError(err))
					failed++
					continue
				}
				con.Success("%s (%s) reachable in %v", t.name, t.cfg.Type, time.Since(start).Round(time.Millisecond))
			}
			if failed > 0 {
				return &ExitError{Code: 1, Err: errors.New("connection test failed")}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&primary, "primary", false, "test the primary database")
	cmd.Flags().BoolVar(&warehouse, "warehouse", false, "test the warehouse database")
	return cmd
}

// testConnection retries transient failures such as a database still
// starting up.
func (a *app) testConnection(ctx context.Context, t target) error {
	ds, err := a.open(t)
	if err != nil {
		return err
	}
	defer ds.Close()

	cfg := retry.DefaultConfig()
	cfg.Notify = func(attempt int, err error, delay time.Duration) {
		a.logger.Warn("Connection attempt failed, retrying",
			zap.String("target", t.name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}
	return retry.DoIfRetryable(ctx, cfg, func() error {
		return ds.TestConnection(ctx)
	})
}

func newExtractSchemaCmd(a *app) *cobra.Command {
	var primary, warehouse bool

	cmd := &cobra.Command{
		Use:   "extract-schema",
		Short: "Extract table and column snapshots from the databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			con := newConsole(a.out)
			con.Phase("Extracting schema snapshots")

			svc := a.schemaService()
			for _, t := range a.selectedTargets(primary, warehouse) {
				ds, err := a.open(t)
				if err != nil {
					return err
				}
				cat, err := svc.Refresh(cmd.Context(), ds, t.cfg.SchemaFilter(), t.snapshotPath)
				_ = ds.Close()
				if err != nil {
					con.Failure("%s: %s", t.name, logging.SanitizeError(err))
					return &ExitError{Code: 1, Err: err}
				}
				con.Success("%s: %d tables -> %s", t.name, cat.Len(), t.snapshotPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&primary, "primary", false, "extract the primary schema")
	cmd.Flags().BoolVar(&warehouse, "warehouse", false, "extract the warehouse schema")
	return cmd
}
