package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/agent"
	"github.com/pario-ai/tokmon/pkg/catchup"
	"github.com/pario-ai/tokmon/pkg/render"
)

func newReportCmd() *cobra.Command {
	var (
		configPath string
		date       string
		send       bool
		today      bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the daily report, or send every due report with --send",
		Long: `Print the daily report for a stored snapshot.

With --send, run the scheduled cycle instead: capture today's snapshot if it
has not been captured, send a cost alert if a threshold is exceeded, and send
the daily report for every day missed since the last successful send, up to
notify.max_makeup_days. This is the command to run from cron.

The snapshot is captured at most once per day by --send; later runs on the
same day report from that first capture. Run 'tokmon snapshot' to refresh
today's snapshot before the report goes out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			ctx := context.Background()

			if send {
				out, err := rt.RunScheduled(ctx, rt.Today())
				if err != nil {
					return err
				}
				printOutcome(out)
				if out.Failed() {
					return errors.New("one or more scheduled cycles failed; see 'tokmon runs'")
				}
				return nil
			}

			day, err := dateOrToday(rt, date)
			if err != nil {
				return err
			}
			if today {
				day = rt.Today()
				if _, err := rt.Capture(ctx, day); err != nil {
					return err
				}
			}
			text, err := rt.Report(ctx, day, false)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&date, "date", "", "day to report (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolVar(&send, "send", false, "run the scheduled snapshot, alert and notify cycle")
	cmd.Flags().BoolVar(&today, "today", false, "capture a fresh snapshot for today before printing")
	return cmd
}

func printOutcome(out agent.Outcome) {
	printJob("snapshot", out.Snapshot)
	printJob("notify", out.Notify)
	if out.AlertErr != nil {
		fmt.Printf("alert: failed: %v\n", out.AlertErr)
	}
	for _, a := range out.Alerts {
		fmt.Printf("alert: %s spent %s of %s\n",
			a.Threshold.Name, render.FormatCost(a.Spent), render.FormatCost(a.Threshold.MaxCost))
	}
}

func printJob(job string, res *catchup.Result) {
	if res == nil {
		fmt.Printf("%s: disabled\n", job)
		return
	}
	if len(res.Planned) == 0 {
		fmt.Printf("%s: up to date\n", job)
		return
	}
	for _, r := range res.Results {
		status := "ok"
		if r.Err != nil {
			status = "failed: " + r.Err.Error()
		}
		fmt.Printf("%s %s: %s\n", job, r.Date, status)
	}
}
