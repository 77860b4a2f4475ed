package signal

import (
	"log/slog"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
	"git.home.luguber.info/inful/bridgewatch/internal/supervisor"
)

// Connection is the supervisor surface signals act on.
type Connection interface {
	State() supervisor.ConnectionState
	ReportConnected(id companion.Identity)
	ReportDisconnected()
	PageRefreshed()
	DiscoveryRequested() bool
}

// ServerSource provides the configured server for synthetic identities.
type ServerSource interface {
	Server() (host string, port int)
}

// Router applies signals.
type Router struct {
	conn     Connection
	servers  ServerSource
	status   func(msg string)
	onSignal func(Type)
	logger   *slog.Logger
}

// NewRouter builds a router. status receives user-facing status lines and
// may be nil.
func NewRouter(conn Connection, servers ServerSource, status func(string), logger *slog.Logger) *Router {
	if status == nil {
		status = func(string) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{conn: conn, servers: servers, status: status, logger: logger}
}

// OnSignal registers a hook called for every accepted signal.
func (r *Router) OnSignal(fn func(Type)) { r.onSignal = fn }

// Handle validates and applies one signal.
func (r *Router) Handle(sig Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	if r.onSignal != nil {
		r.onSignal(sig.Type)
	}
	r.logger.Debug("Signal received", logfields.Signal(string(sig.Type)), logfields.Reason(sig.Reason))

	switch sig.Type {
	case ConnectionStatusUpdate:
		if *sig.IsConnected {
			if !r.conn.State().Connected {
				host, port := r.servers.Server()
				r.conn.ReportConnected(companion.Identity{
					Name:    "Browser Tools Server",
					Version: "reconnected",
					Host:    host,
					Port:    port,
				})
			}
			return nil
		}
		r.conn.ReportDisconnected()

	case InitiateAutoDiscovery:
		if sig.Reason == ReasonPageRefresh || sig.ForceRestart {
			r.status("Page refreshed. Restarting server discovery...")
			r.conn.PageRefreshed()
			return nil
		}
		r.conn.DiscoveryRequested()

	case ServerValidationSuccess:
		id := companion.Identity{Host: sig.ServerHost, Port: sig.ServerPort, Name: "Browser Tools Server"}
		if sig.ServerInfo != nil {
			id.Name = sig.ServerInfo.Name
			id.Version = sig.ServerInfo.Version
			id.Signature = sig.ServerInfo.Signature
		}
		r.conn.ReportConnected(id)

	case ServerValidationFailed:
		r.logger.Info("Server validation failed",
			logfields.Reason(sig.Reason), logfields.Host(sig.ServerHost), logfields.Port(sig.ServerPort))
		r.conn.ReportDisconnected()
		if sig.Reason == ReasonConnectionError || sig.Reason == ReasonHTTPError {
			r.conn.DiscoveryRequested()
		}

	case WebSocketConnected:
		if r.conn.State().Connected {
			return nil
		}
		host, port := sig.ServerHost, sig.ServerPort
		if host == "" || port == 0 {
			host, port = r.servers.Server()
		}
		r.conn.ReportConnected(companion.Identity{
			Name:    "Browser Tools Server",
			Version: "connected via WebSocket",
			Host:    host,
			Port:    port,
		})
	}
	return nil
}
