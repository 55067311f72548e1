package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vodmill/internal/daemon"
	"vodmill/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare directories: %w", err)
			}

			runID := time.Now().UTC().Format("20060102T150405Z")
			logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vodmill-%s.log", runID))
			logger, err := logging.New(logging.Options{
				Level:            cfg.Logging.Level,
				Format:           cfg.Logging.Format,
				OutputPaths:      []string{"stdout", logPath},
				ErrorOutputPaths: []string{"stderr", logPath},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return daemon.New(cfg, logger).Run(signalCtx)
		},
	}
}
