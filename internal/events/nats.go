package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
)

// NATSForwarder republishes bus notifications as JSON on
// "<prefix>.<notification type>".
type NATSForwarder struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSForwarder connects to url.
func NewNATSForwarder(url, prefix string) (*NATSForwarder, error) {
	nc, err := nats.Connect(url, nats.Name("bridgewatch"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	slog.Info("NATS forwarder connected", slog.String("url", url), slog.String("prefix", prefix))
	return &NATSForwarder{conn: nc, prefix: prefix}, nil
}

// Subject returns the subject a notification kind is published on.
func (f *NATSForwarder) Subject(k Kind) string {
	return f.prefix + "." + string(k)
}

// Run forwards notifications until ctx ends or the subscription closes.
func (f *NATSForwarder) Run(ctx context.Context, bus *Bus) {
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := f.publish(n); err != nil {
				slog.Warn("Failed to forward notification to NATS",
					slog.String("type", string(n.Type)), logfields.Error(err))
			}
		}
	}
}

func (f *NATSForwarder) publish(n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return f.conn.Publish(f.Subject(n.Type), data)
}

// Close drains the connection.
func (f *NATSForwarder) Close() error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Drain()
}
