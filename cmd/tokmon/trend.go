package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/render"
	"github.com/pario-ai/tokmon/pkg/trend"
)

func newTrendCmd() *cobra.Command {
	var (
		configPath string
		window     int
	)

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Summarize usage over a trailing window and compare with the window before",
		RunE: func(cmd *cobra.Command, args []string) error {
			if window < 1 {
				return fmt.Errorf("--window must be at least 1, got %d", window)
			}
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			today := rt.Today()
			history, err := rt.Store.List(context.Background(), models.LastDays(today, 2*window))
			if err != nil {
				return err
			}
			fmt.Print(render.Trend(trend.Compare(history, window, today)))
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVar(&window, "window", trend.DefaultWindow, "window length in days")
	return cmd
}
