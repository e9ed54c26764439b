package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/render"
)

func newRunsCmd() *cobra.Command {
	var (
		configPath string
		job        string
		status     string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scheduled cycle runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			opts := models.RunQueryOpts{
				Job:    job,
				Status: models.CycleStatus(status),
				Limit:  limit,
			}
			if since != "" {
				t, err := time.ParseInLocation(models.DateLayout, since, rt.Config.Location())
				if err != nil {
					return err
				}
				opts.Since = t
			}

			runs, err := rt.RunLog.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			return render.RunsTable(os.Stdout, runs)
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&job, "job", "", "filter by job (snapshot, notify)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (succeeded, failed)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max runs to return")
	return cmd
}
