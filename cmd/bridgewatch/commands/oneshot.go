package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/daemon"
	"git.home.luguber.info/inful/bridgewatch/internal/events"
)

// withDaemon builds a daemon that is never started, runs fn and closes the
// stores again. Status lines are printed to out while fn runs.
func withDaemon(g *Global, root *CLI, timeout time.Duration, out io.Writer, fn func(ctx context.Context, d *daemon.Daemon) error) error {
	cfg, _, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	d, err := daemon.New(ctx, cfg, daemon.Options{LogLevel: g.LogLevel})
	if err != nil {
		return err
	}
	defer func() { _ = d.Stop(context.WithoutCancel(ctx)) }()

	notifications, unsubscribe := d.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printStatus(out, notifications)
	}()

	err = fn(ctx, d)
	unsubscribe()
	<-printed
	return err
}

// printStatus prints every notification that carries a message until the
// channel closes.
func printStatus(out io.Writer, ch <-chan events.Notification) {
	for n := range ch {
		if n.Message != "" {
			fmt.Fprintln(out, n.Message)
		}
	}
}
