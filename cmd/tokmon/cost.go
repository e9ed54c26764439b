package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/render"
)

func newCostCmd() *cobra.Command {
	var (
		configPath string
		date       string
		live       bool
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Show estimated cost per model",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			ctx := context.Background()
			day, err := dateOrToday(rt, date)
			if err != nil {
				return err
			}

			var snap *models.Snapshot
			if live {
				measured, _ := rt.Measure(ctx, day)
				snap = &measured
			} else {
				snap, err = rt.Store.Get(ctx, day)
				if err != nil {
					return err
				}
				if snap == nil {
					fmt.Printf("No snapshot stored for %s. Run 'tokmon snapshot' or use --live.\n", day)
					return nil
				}
			}

			fmt.Printf("Estimated cost for %s\n\n", snap.Date)
			fmt.Print(render.CostTable(snap.Cost))
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&date, "date", "", "day to show (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolVar(&live, "live", false, "measure current usage instead of reading the stored snapshot")
	return cmd
}
