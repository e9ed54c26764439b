package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/agent"
	"github.com/pario-ai/tokmon/pkg/config"
	"github.com/pario-ai/tokmon/pkg/logging"
	"github.com/pario-ai/tokmon/pkg/models"
)

// defaultConfigPath returns ~/.tokmon/config.yaml when it exists.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".tokmon", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.PersistentFlags().StringVarP(configPath, "config", "c", defaultConfigPath(), "path to config file")
}

func loadConfig(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openRuntime loads config and wires the agent. The caller closes both.
func openRuntime(configPath string) (*agent.Runtime, *zap.Logger, error) {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	rt, err := agent.Build(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return rt, logger, nil
}

// dateOrToday parses a YYYY-MM-DD flag value, defaulting to today.
func dateOrToday(rt *agent.Runtime, value string) (models.Date, error) {
	if value == "" {
		return rt.Today(), nil
	}
	return models.ParseDate(value)
}

func closeRuntime(rt *agent.Runtime, logger *zap.Logger) {
	_ = rt.Close()
	_ = logger.Sync()
}
