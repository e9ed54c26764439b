package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/agent"
)

// scheduler implements service.Interface. It runs the scheduled cycle once
// on start and then on every tick.
type scheduler struct {
	configPath string
	interval   time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *scheduler) Start(svc service.Service) error {
	rt, logger, err := openRuntime(s.configPath)
	if err != nil {
		return err
	}
	interval := s.interval
	if interval <= 0 {
		interval = rt.Config.Daemon.Interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer closeRuntime(rt, logger)
		s.loop(ctx, rt, logger, interval)
	}()
	return nil
}

func (s *scheduler) Stop(svc service.Service) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *scheduler) loop(ctx context.Context, rt *agent.Runtime, logger *zap.Logger, interval time.Duration) {
	logger.Info("daemon started", zap.Duration("interval", interval))
	s.tick(ctx, rt, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx, rt, logger)
		case <-ctx.Done():
			logger.Info("daemon stopped")
			return
		}
	}
}

// tick never stops the loop; failed dates are retried on the next tick.
func (s *scheduler) tick(ctx context.Context, rt *agent.Runtime, logger *zap.Logger) {
	today := rt.Today()
	out, err := rt.RunScheduled(ctx, today)
	if err != nil {
		logger.Error("scheduled run failed", zap.Stringer("today", today), zap.Error(err))
		return
	}
	if out.Failed() {
		logger.Warn("scheduled run finished with failures", zap.Stringer("today", today))
	}
}

func newDaemonCmd() *cobra.Command {
	var (
		configPath string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:       "daemon <install|start|stop|uninstall|status|run>",
		Short:     "Run the scheduled cycle as a background service",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"install", "start", "stop", "uninstall", "status", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svcArgs := []string{"daemon", "run"}
			if configPath != "" {
				abs, err := filepath.Abs(configPath)
				if err != nil {
					return err
				}
				svcArgs = append(svcArgs, "--config", abs)
			}
			if interval > 0 {
				svcArgs = append(svcArgs, fmt.Sprintf("--interval=%s", interval))
			}

			sched := &scheduler{configPath: configPath, interval: interval}
			svc, err := service.New(sched, &service.Config{
				Name:        "tokmon",
				DisplayName: "tokmon Token Monitor",
				Description: "Captures daily token usage snapshots and sends usage reports",
				Arguments:   svcArgs,
			})
			if err != nil {
				return fmt.Errorf("create service: %w", err)
			}

			switch args[0] {
			case "install":
				if _, _, err := loadConfig(configPath); err != nil {
					return err
				}
				if err := svc.Install(); err != nil {
					return fmt.Errorf("install service: %w", err)
				}
				if err := svc.Start(); err != nil {
					return fmt.Errorf("service installed but failed to start: %w", err)
				}
				fmt.Println("Service installed and started.")
			case "start":
				if err := svc.Start(); err != nil {
					return fmt.Errorf("start service: %w", err)
				}
				fmt.Println("Service started.")
			case "stop":
				if err := svc.Stop(); err != nil {
					return fmt.Errorf("stop service: %w", err)
				}
				fmt.Println("Service stopped.")
			case "uninstall":
				_ = svc.Stop()
				if err := svc.Uninstall(); err != nil {
					return fmt.Errorf("uninstall service: %w", err)
				}
				fmt.Println("Service uninstalled.")
			case "status":
				status, err := svc.Status()
				if err != nil {
					fmt.Printf("Service status: not installed or error (%v)\n", err)
					return nil
				}
				switch status {
				case service.StatusRunning:
					fmt.Println("Service status: running")
				case service.StatusStopped:
					fmt.Println("Service status: stopped")
				default:
					fmt.Println("Service status: unknown")
				}
			case "run":
				// Foreground, or under the service manager.
				return svc.Run()
			}
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between cycles (default: daemon.interval from config)")
	return cmd
}
