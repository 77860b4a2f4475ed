package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/bridgewatch/internal/daemon"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Listen string `short:"l" help:"Override the HTTP listen address"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, fromFile, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if w.Listen != "" {
		cfg.HTTP.Listen = w.Listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := daemon.Options{LogLevel: g.LogLevel}
	if fromFile {
		opts.ConfigPath = root.Config
	}
	d, err := daemon.New(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	slog.Info("Daemon starting, waiting for shutdown signal...")
	if err := d.Run(ctx); err != nil {
		return err
	}
	slog.Info("Daemon stopped successfully")
	return nil
}
