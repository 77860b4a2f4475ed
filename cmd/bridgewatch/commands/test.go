package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/daemon"
)

// TestCmd implements the 'test' command.
type TestCmd struct {
	Host string `help:"Server host; saved as the configured server when it differs"`
	Port int    `help:"Server port; saved as the configured server when it differs"`
}

func (c *TestCmd) Run(g *Global, root *CLI) error {
	return withDaemon(g, root, time.Minute, os.Stdout, func(ctx context.Context, d *daemon.Daemon) error {
		res, err := d.TestConnection(ctx, c.Host, c.Port)
		if err != nil {
			return err
		}
		if !res.Connected {
			return res.Err
		}
		fmt.Printf("Server identity: %s v%s\n", res.Identity.Name, res.Identity.Version)
		return nil
	})
}
