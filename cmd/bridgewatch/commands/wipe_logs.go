package commands

import (
	"context"
	"os"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/daemon"
)

// WipeLogsCmd implements the 'wipe-logs' command.
type WipeLogsCmd struct {
	Timeout time.Duration `help:"Request timeout" default:"10s"`
}

func (c *WipeLogsCmd) Run(g *Global, root *CLI) error {
	// The daemon publishes the server's reply as a status line.
	return withDaemon(g, root, c.Timeout, os.Stdout, func(ctx context.Context, d *daemon.Daemon) error {
		_, err := d.WipeLogs(ctx)
		return err
	})
}

