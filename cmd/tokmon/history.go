package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/render"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored daily snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			snaps, err := rt.Store.List(context.Background(), models.LastDays(rt.Today(), days))
			if err != nil {
				return err
			}
			return render.HistoryTable(os.Stdout, snaps)
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVar(&days, "days", 7, "number of days ending today")
	return cmd
}
