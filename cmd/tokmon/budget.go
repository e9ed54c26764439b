package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/budget"
	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/notify"
	"github.com/pario-ai/tokmon/pkg/render"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Check estimated cost against thresholds",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show spend against each configured threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			if rt.Budget == nil {
				fmt.Println("No cost thresholds are configured.")
				return nil
			}
			statuses, err := rt.Budget.Status(context.Background(), rt.Today())
			if err != nil {
				return err
			}
			return render.BudgetTable(os.Stdout, statuses)
		},
	}

	var (
		threshold float64
		source    string
		notifyOut bool
	)
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Exit non-zero if any threshold is exceeded by today's snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			thresholds := rt.Config.Budget.Thresholds
			if cmd.Flags().Changed("threshold") {
				thresholds = append(thresholds, models.BudgetThreshold{
					Name:    "cli",
					Source:  models.SourceID(source),
					MaxCost: threshold,
					Period:  models.BudgetDaily,
				})
			}
			if len(thresholds) == 0 {
				return errors.New("no thresholds configured; pass --threshold")
			}

			ctx := context.Background()
			today := rt.Today()
			statuses, err := budget.New(thresholds, rt.Store).Status(ctx, today)
			if err != nil {
				return err
			}
			if err := render.BudgetTable(os.Stdout, statuses); err != nil {
				return err
			}

			exceeded := budget.Exceeded(statuses)
			if len(exceeded) == 0 {
				return nil
			}
			if notifyOut {
				if rt.Sender == nil {
					return errors.New("no notification channel is enabled")
				}
				err := rt.Sender.Send(ctx, notify.Message{
					Kind:    notify.KindAlert,
					Date:    today,
					Subject: "Token Monitor cost alert",
					Body:    render.Alert(today, exceeded),
				})
				if err != nil {
					return err
				}
			}
			return fmt.Errorf("%w: %d threshold(s)", budget.ErrBudgetExceeded, len(exceeded))
		},
	}
	checkCmd.Flags().Float64Var(&threshold, "threshold", 0, "ad-hoc daily threshold in USD")
	checkCmd.Flags().StringVar(&source, "source", "", "limit --threshold to one source")
	checkCmd.Flags().BoolVar(&notifyOut, "notify", false, "send an alert through the enabled channels when exceeded")

	addConfigFlag(cmd, &configPath)
	cmd.AddCommand(statusCmd, checkCmd)
	return cmd
}
