package api

import (
	"context"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/events"
	"git.home.luguber.info/inful/bridgewatch/internal/eventstore"
	"git.home.luguber.info/inful/bridgewatch/internal/settings"
	"git.home.luguber.info/inful/bridgewatch/internal/signal"
	"git.home.luguber.info/inful/bridgewatch/internal/supervisor"
)

// Service is what the HTTP surface needs from the daemon.
type Service interface {
	Status() Status
	History() []eventstore.SessionSummary
	HandleSignal(sig signal.Signal) error
	Discover() bool
	CancelDiscovery()
	TestConnection(ctx context.Context, host string, port int) (TestResult, error)
	UpdateSettings(ctx context.Context, patch settings.Patch) (settings.Settings, *TestResult, error)
	WipeLogs(ctx context.Context) (string, error)
	Subscribe() (<-chan events.Notification, func())
}

// Status is the /status payload.
type Status struct {
	Connection          supervisor.ConnectionState  `json:"connection"`
	DiscoveryInProgress bool                        `json:"discoveryInProgress"`
	LastDiscovery       *DiscoverySummary           `json:"lastDiscovery,omitempty"`
	Reconnect           supervisor.ReconnectInfo    `json:"reconnect"`
	Settings            settings.Settings           `json:"settings"`
	History             []eventstore.SessionSummary `json:"history,omitempty"`
	StartedAt           time.Time                   `json:"startedAt"`
}

// DiscoverySummary describes the most recent finished discovery session.
type DiscoverySummary struct {
	SessionID  string              `json:"sessionId"`
	Outcome    string              `json:"outcome"`
	Quiet      bool                `json:"quiet"`
	Reason     string              `json:"reason,omitempty"`
	Identity   *companion.Identity `json:"identity,omitempty"`
	Checked    int                 `json:"checked"`
	DurationMS int64               `json:"durationMs"`
	Error      string              `json:"error,omitempty"`
}

// TestResult is the outcome of an explicit connection test. Err carries the
// classified failure and is not serialized.
type TestResult struct {
	Connected bool                `json:"connected"`
	Identity  *companion.Identity `json:"identity,omitempty"`
	Message   string              `json:"message"`
	Err       error               `json:"-"`
}

// TestRequest is the optional body of POST /test.
type TestRequest struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}
