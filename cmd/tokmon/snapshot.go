package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/render"
)

func newSnapshotCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Collect usage from every source and store today's snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			ctx := context.Background()
			today := rt.Today()

			if dryRun {
				snap, _ := rt.Measure(ctx, today)
				fmt.Print(render.DailyReport(render.Report{Date: today, Snapshot: &snap}))
				return nil
			}

			snap, err := rt.Capture(ctx, today)
			if err != nil {
				return err
			}
			if err := rt.Store.SetLastRun(ctx, models.JobSnapshot, today); err != nil {
				return err
			}
			fmt.Printf("Snapshot stored for %s: %s tokens, %s estimated\n",
				today, render.FormatTokens(snap.TotalTokens()), render.FormatCost(snap.Cost.TotalCost))
			if len(snap.Usage.Missing) > 0 {
				fmt.Printf("Unavailable sources: %v\n", snap.Usage.Missing)
			}
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the snapshot without storing it")
	return cmd
}
