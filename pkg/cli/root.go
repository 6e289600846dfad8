// Package cli is the command line front end: it loads configuration, wires
// datasources and services, and prints results.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/config"
	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"

	// Datasource adapters register themselves with the datasource registry.
	_ "github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource/oracle"
	_ "github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource/sqlite"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// app is the state shared by every command after the root pre-run.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ekaya-discovery",
		Short:         "Find members matching feature-file examples and look up their warehouse records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, version)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug-level logging")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newTestConnectionCmd(a))
	root.AddCommand(newExtractSchemaCmd(a))
	root.AddCommand(newFetchActiveCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newGenerateCmd(a))

	return root
}

func (a *app) init(cmd *cobra.Command, version string) error {
	cfg, err := config.Load(a.configPath, version)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(cfg.Env, level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.out = cmd.OutOrStdout()
	logger.Debug("Configuration loaded",
		zap.String("path", a.configPath),
		zap.String("env", cfg.Env),
		zap.String("primary", cfg.Primary.Type),
		zap.String("warehouse", cfg.Warehouse.Type),
		zap.Bool("llm", cfg.LLM.Enabled()))
	return nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// No config is needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ekaya-discovery "+version)
		},
	}
}

// Execute runs the root command and returns the process exit code.
func Execute(version string) int {
	err := NewRootCmd(version).Execute()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}
