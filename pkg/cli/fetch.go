package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-discovery/pkg/repositories"
	"github.com/ekaya-inc/ekaya-discovery/pkg/services"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

var fileNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func newFetchActiveCmd(a *app) *cobra.Command {
	var (
		memberType string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "fetch-active",
		Short: "Fetch the first page of active members for one member type",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			con := newConsole(a.out)

			if finding := sqlpkg.ScreenValue(services.ParamMemberType, memberType); finding != nil {
				return &ExitError{Code: 2, Err: finding}
			}
			if limit <= 0 {
				limit = a.cfg.Discovery.BatchSize
			}

			stack, err := a.discoveryStack(ctx)
			if err != nil {
				return err
			}
			defer stack.primary.Close()
			con.Phase("Active %s members", memberType)

			rows, err := stack.source.FetchPage(ctx, memberType, 0, limit)
			if err != nil {
				return err
			}

			name := fmt.Sprintf("active_%s_%s.json",
				strings.Trim(fileNameUnsafe.ReplaceAllString(strings.ToLower(memberType), "_"), "_"),
				time.Now().Format("20060102_150405"))
			path, err := repositories.NewResultWriter(a.logger).Write(a.cfg.Paths.PrimaryOutputDir, name, rows)
			if err != nil {
				return err
			}
			con.Success("%d rows -> %s", len(rows), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&memberType, "member-type", "t", "", "member type to list (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "rows to fetch (default discovery.batch_size)")
	_ = cmd.MarkFlagRequired("member-type")
	return cmd
}
