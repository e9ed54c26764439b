package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokmon/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve usage, cost and trend tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(configPath)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mcp.New(rt.Store, rt.RunLog, rt.Budget, rt.Today, version, logger.Named("mcp"))
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}
