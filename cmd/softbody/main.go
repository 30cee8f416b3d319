// Package main is the entry point for the softbody simulator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/softbody/internal/config"
	"github.com/Faultbox/softbody/internal/logger"
	"github.com/Faultbox/softbody/internal/sim"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Softbody ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("simulation closed normally")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := sim.BuildScene(cfg, logger.Named("sim"))
	if err != nil {
		return err
	}

	r := sim.NewRunner(s, cfg.Run, logger.Named("run"))

	if config.WatchEnabled() {
		path := config.Path()
		if path == "" {
			logger.Warn("--watch given but no config file is in use")
		} else {
			go func() {
				err := config.Watch(ctx, path, logger.Named("config"), func(c *config.Config) {
					r.PushTunables(sim.Tunables(c.Simulation))
				})
				if err != nil {
					logger.Error("config watch stopped", zap.Error(err))
				}
			}()
		}
	}

	if _, err := r.Run(ctx); err != nil {
		return err
	}

	if cfg.Run.Output != "" {
		if err := sim.ExportOBJ(cfg.Run.Output, s); err != nil {
			return err
		}
		logger.Info("mesh written", zap.String("path", cfg.Run.Output))
	}
	return nil
}
