package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "tokmon",
		Short:         "Daily token usage and cost monitor",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSnapshotCmd(),
		newCostCmd(),
		newPricingCmd(),
		newHistoryCmd(),
		newTrendCmd(),
		newReportCmd(),
		newBudgetCmd(),
		newRunsCmd(),
		newDaemonCmd(),
		newMCPCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
