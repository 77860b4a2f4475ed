package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/bridgewatch/internal/api"
	"git.home.luguber.info/inful/bridgewatch/internal/discovery"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/eventstore"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
	"git.home.luguber.info/inful/bridgewatch/internal/settings"
	"git.home.luguber.info/inful/bridgewatch/internal/signal"
)

// Status reports connection, discovery and settings state.
func (d *Daemon) Status() api.Status {
	st := api.Status{
		Connection:          d.supervisor.State(),
		DiscoveryInProgress: d.coordinator.InProgress(),
		Reconnect:           d.supervisor.Reconnect(),
		Settings:            d.settings.Current(),
		History:             d.History(),
		StartedAt:           d.startTime,
	}
	if res, ok := d.coordinator.LastResult(); ok {
		st.LastDiscovery = summarize(res)
	}
	return st
}

func summarize(res discovery.Result) *api.DiscoverySummary {
	s := &api.DiscoverySummary{
		SessionID:  res.SessionID,
		Outcome:    res.Outcome.String(),
		Quiet:      res.Quiet,
		Reason:     res.Reason,
		Identity:   res.Identity,
		Checked:    res.Checked,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}

// History returns recent discovery sessions, newest first. It is empty when
// the history store is disabled.
func (d *Daemon) History() []eventstore.SessionSummary {
	if d.history == nil {
		return nil
	}
	return d.history.History()
}

// HandleSignal applies an inbound UI signal.
func (d *Daemon) HandleSignal(sig signal.Signal) error {
	if err := d.router.Handle(sig); err != nil {
		return bwerrors.Wrap(err, bwerrors.CategoryValidation, bwerrors.SeverityWarning, "invalid signal")
	}
	return nil
}

// Discover starts a visible discovery, replacing any running session. It
// backs both the discover and the reconnect buttons.
func (d *Daemon) Discover() bool {
	return d.coordinator.Launch(d.runCtx, discovery.Request{
		Quiet:  false,
		Mode:   discovery.Preempt,
		Reason: discovery.ReasonUser,
	})
}

// DiscoverAndWait runs a visible discovery and waits for its result.
func (d *Daemon) DiscoverAndWait(ctx context.Context) discovery.Result {
	return d.coordinator.Discover(ctx, discovery.Request{Reason: discovery.ReasonUser})
}

// CancelDiscovery cancels the running session, if any.
func (d *Daemon) CancelDiscovery() {
	d.coordinator.Cancel()
}

// TestConnection validates one server explicitly. An empty host or zero port
// keeps the configured value; a different host or port is saved first.
//
// The returned error is reserved for failures to run the test at all. A
// server that cannot be reached or is the wrong service is reported in the
// result, with the classified error in Err.
func (d *Daemon) TestConnection(ctx context.Context, host string, port int) (api.TestResult, error) {
	d.coordinator.Cancel()

	curHost, curPort := d.settings.Server()
	if host == "" {
		host = curHost
	}
	if port == 0 {
		port = curPort
	}
	if host != curHost || port != curPort {
		if err := d.settings.SetServer(ctx, host, port); err != nil {
			return api.TestResult{}, err
		}
	}

	d.publisher.Status(fmt.Sprintf("Testing connection to %s:%d...", host, port))
	id, err := d.client.Test(ctx, host, port, d.Config().Discovery.TestTimeoutDuration())
	if err != nil && ctx.Err() != nil {
		return api.TestResult{}, fmt.Errorf("connection test interrupted: %w", context.Cause(ctx))
	}

	var res api.TestResult
	switch {
	case err == nil:
		if id.Port != port {
			slog.Info("Server reports a different port, updating settings",
				logfields.Host(host), logfields.Port(id.Port), slog.Int("probed_port", port))
			if err := d.settings.SetServer(ctx, host, id.Port); err != nil {
				slog.Error("Failed to save reported port", logfields.Error(err))
			}
		}
		d.supervisor.ReportConnected(*id)
		res = api.TestResult{
			Connected: true,
			Identity:  id,
			Message:   fmt.Sprintf("Connected to %s v%s at %s:%d", id.Name, id.Version, host, id.Port),
		}

	case bwerrors.IsCategory(err, bwerrors.CategoryIdentity):
		d.supervisor.ReportDisconnected()
		res = api.TestResult{
			Message: fmt.Sprintf("Connection failed: Found a server at %s:%d but it's not the Browser Tools server", host, port),
			Err:     err,
		}

	default:
		d.supervisor.ReportDisconnected()
		res = api.TestResult{
			Message: "Connection failed: " + failureDetail(err),
			Err:     err,
		}
	}

	d.publisher.Status(res.Message)
	return res, nil
}

// failureDetail returns the underlying cause of a classified error.
func failureDetail(err error) string {
	if be, ok := bwerrors.As(err); ok {
		if be.Cause != nil {
			return be.Cause.Error()
		}
		return be.Message
	}
	return err.Error()
}

// UpdateSettings applies patch to the current record. When the server host
// or port changed an explicit connection test follows and its result is
// returned.
func (d *Daemon) UpdateSettings(ctx context.Context, patch settings.Patch) (settings.Settings, *api.TestResult, error) {
	var serverChanged bool
	saved, err := d.settings.Update(ctx, func(s *settings.Settings) {
		host, port := s.ServerHost, s.ServerPort
		patch.Apply(s)
		serverChanged = s.ServerHost != host || s.ServerPort != port
	})
	if err != nil {
		return saved, nil, err
	}
	if !serverChanged {
		return saved, nil, nil
	}

	res, err := d.TestConnection(ctx, "", 0)
	if err != nil {
		return d.settings.Current(), nil, err
	}
	return d.settings.Current(), &res, nil
}

// WipeLogs asks the configured server to drop its collected logs.
func (d *Daemon) WipeLogs(ctx context.Context) (string, error) {
	host, port := d.settings.Server()
	msg, err := d.client.WipeLogs(ctx, host, port)
	if err != nil {
		d.publisher.Status("Failed to wipe logs: " + failureDetail(err))
		return "", err
	}
	d.publisher.Status(msg)
	return msg, nil
}
