// Package signal routes inbound notifications from UI adapters (the browser
// panel's background messages) onto the connection supervisor.
package signal

import (
	"fmt"
)

// Type names an inbound signal.
type Type string

const (
	ConnectionStatusUpdate  Type = "CONNECTION_STATUS_UPDATE"
	InitiateAutoDiscovery   Type = "INITIATE_AUTO_DISCOVERY"
	ServerValidationSuccess Type = "SERVER_VALIDATION_SUCCESS"
	ServerValidationFailed  Type = "SERVER_VALIDATION_FAILED"
	WebSocketConnected      Type = "WEBSOCKET_CONNECTED"
)

// Reasons carried by signals.
const (
	ReasonPageRefresh     = "page_refresh"
	ReasonConnectionError = "connection_error"
	ReasonHTTPError       = "http_error"
)

// ServerInfo is the identity a UI adapter already validated.
type ServerInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Signature string `json:"signature,omitempty"`
}

// Signal is the JSON envelope UI adapters send.
type Signal struct {
	Type         Type        `json:"type"`
	IsConnected  *bool       `json:"isConnected,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	ForceRestart bool        `json:"forceRestart,omitempty"`
	ServerHost   string      `json:"serverHost,omitempty"`
	ServerPort   int         `json:"serverPort,omitempty"`
	ServerInfo   *ServerInfo `json:"serverInfo,omitempty"`
}

// Validate rejects envelopes the router cannot act on.
func (s Signal) Validate() error {
	switch s.Type {
	case ConnectionStatusUpdate:
		if s.IsConnected == nil {
			return fmt.Errorf("%s requires isConnected", s.Type)
		}
	case InitiateAutoDiscovery, ServerValidationFailed, WebSocketConnected:
	case ServerValidationSuccess:
		if s.ServerHost == "" || s.ServerPort == 0 {
			return fmt.Errorf("%s requires serverHost and serverPort", s.Type)
		}
	case "":
		return fmt.Errorf("signal type is required")
	default:
		return fmt.Errorf("unknown signal type %q", s.Type)
	}
	return nil
}
