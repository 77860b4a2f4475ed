// Package events carries outbound notifications to UI adapters: a fan-out
// bus plus adapters that turn settings, connection and discovery callbacks
// into typed notifications.
package events

import (
	"time"
)

// Kind names a notification type.
type Kind string

const (
	SettingsUpdated        Kind = "settings-updated"
	ConnectionStateChanged Kind = "connection-state-changed"
	DiscoveryStarted       Kind = "discovery-started"
	DiscoveryProgress      Kind = "discovery-progress"
	DiscoveryFinished      Kind = "discovery-finished"
	StatusMessage          Kind = "status-message"
)

// Notification is one outbound event.
type Notification struct {
	Type      Kind      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// StartedData accompanies DiscoveryStarted.
type StartedData struct {
	Quiet      bool   `json:"quiet"`
	Reason     string `json:"reason,omitempty"`
	Candidates int    `json:"candidates"`
}

// ProgressData accompanies DiscoveryProgress.
type ProgressData struct {
	Phase  int    `json:"phase"`
	Target string `json:"target,omitempty"`
}

// FinishedData accompanies DiscoveryFinished.
type FinishedData struct {
	Outcome    string `json:"outcome"`
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	Checked    int    `json:"checked"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
