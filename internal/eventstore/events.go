package eventstore

// Event type names.
const (
	TypeDiscoveryStarted   = "DiscoveryStarted"
	TypeServerDiscovered   = "ServerDiscovered"
	TypeDiscoveryExhausted = "DiscoveryExhausted"
	TypeDiscoveryCancelled = "DiscoveryCancelled"
	TypeDiscoveryFailed    = "DiscoveryFailed"
)

// StartedPayload is stored with TypeDiscoveryStarted.
type StartedPayload struct {
	Quiet      bool   `json:"quiet"`
	Reason     string `json:"reason,omitempty"`
	Candidates int    `json:"candidates"`
}

// FinishedPayload is stored with every terminal event.
type FinishedPayload struct {
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	Name       string `json:"name,omitempty"`
	Version    string `json:"version,omitempty"`
	Checked    int    `json:"checked"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
