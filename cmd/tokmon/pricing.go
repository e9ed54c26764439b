package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/pricing"
	"github.com/pario-ai/tokmon/pkg/render"
)

func newPricingCmd() *cobra.Command {
	var (
		configPath string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Show the pricing table (USD per million tokens)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			table, err := pricing.LoadOrDefault(cfg.Pricing.File)
			if err != nil {
				return err
			}

			if model != "" {
				entry, pricedAs, ok := table.Lookup(model)
				if !ok {
					return fmt.Errorf("no price entry for model %q", model)
				}
				fmt.Printf("%s is priced as %s\n", model, pricedAs)
				fmt.Printf("  input %.4f, output %.4f, cache read %.4f, cache write %.4f\n",
					entry.InputRate, entry.OutputRate, entry.CacheReadRate, entry.CacheWriteRate)
				return nil
			}
			return render.PricingTable(os.Stdout, table.Entries(), table.Aliases())
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&model, "model", "", "resolve a single model name")
	return cmd
}
