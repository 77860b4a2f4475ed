package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/daemon"
	"git.home.luguber.info/inful/bridgewatch/internal/discovery"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	Timeout time.Duration `help:"Give up after this long" default:"5m"`
}

func (c *DiscoverCmd) Run(g *Global, root *CLI) error {
	return withDaemon(g, root, c.Timeout, os.Stdout, func(ctx context.Context, d *daemon.Daemon) error {
		res := d.DiscoverAndWait(ctx)
		switch res.Outcome {
		case discovery.Found:
			fmt.Printf("%s v%s at %s\n", res.Identity.Name, res.Identity.Version, res.Identity.Endpoint())
			return nil
		case discovery.Exhausted:
			return bwerrors.DiscoveryExhausted(res.Checked)
		case discovery.Cancelled:
			return bwerrors.Wrap(res.Err, bwerrors.CategoryDiscovery, bwerrors.SeverityWarning, "discovery cancelled")
		default:
			return bwerrors.InternalError("discovery failed", res.Err)
		}
	})
}
