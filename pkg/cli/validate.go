package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		targetName string
		sqlText    string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "validate [SQL]",
		Short: "Check a statement against the safety rules and a schema snapshot",
		Long: "Check a statement against the safety rules and, when the target's schema snapshot " +
			"exists, against its tables and columns. Exits with status 2 when the statement is rejected.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.target(targetName)
			if err != nil {
				return err
			}
			stmt, err := statementInput(sqlText, file, args)
			if err != nil {
				return err
			}

			con := newConsole(a.out)
			con.Phase("Validating against %s", t.name)

			cat, err := schema.Load(t.snapshotPath)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				con.Warning("no schema snapshot at %s, checking safety rules only", t.snapshotPath)
				cat = nil
			case err != nil:
				return err
			default:
				con.Info("schema: %d tables from %s", cat.Len(), t.snapshotPath)
			}

			verdict := sqlpkg.NewValidator(nil).Validate(stmt, cat)
			con.Verdict(verdict)
			if !verdict.Passed {
				return &ExitError{Code: 2}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetName, "target", targetPrimary, "schema to check against: primary or warehouse")
	cmd.Flags().StringVar(&sqlText, "sql", "", "statement text")
	cmd.Flags().StringVar(&file, "file", "", "read the statement from a file")
	cmd.MarkFlagsMutuallyExclusive("sql", "file")
	return cmd
}

// statementInput picks the statement from --sql, --file or the arguments.
func statementInput(sqlText, file string, args []string) (string, error) {
	switch {
	case sqlText != "":
		return sqlText, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read statement: %w", err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", errors.New("no statement given (use --sql, --file or an argument)")
	}
}
