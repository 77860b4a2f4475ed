package discovery

import (
	"errors"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
)

// Outcome is how a discovery session ended.
type Outcome int

const (
	Found Outcome = iota
	// Exhausted means every candidate was probed without a match.
	Exhausted
	// Cancelled means the session was preempted or cancelled; it changes nothing.
	Cancelled
	// Failed means the session hit an internal error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Result summarizes one session.
type Result struct {
	SessionID string
	Outcome   Outcome
	Quiet     bool
	Reason    string
	// Identity is set when Outcome is Found.
	Identity *companion.Identity
	// Checked is the number of probes issued.
	Checked  int
	Duration time.Duration
	Err      error
}

// LaunchMode decides what happens when a session is already running.
type LaunchMode int

const (
	// Preempt cancels the running session and starts a new one.
	Preempt LaunchMode = iota
	// IfIdle starts a session only when none is running.
	IfIdle
)

// Request describes a session to start.
type Request struct {
	Quiet  bool
	Mode   LaunchMode
	Reason string
}

// Reasons recorded with sessions.
const (
	ReasonStartup     = "startup"
	ReasonUser        = "user"
	ReasonPageRefresh = "page_refresh"
	ReasonReconnect   = "reconnect"
	ReasonRequested   = "requested"
)

var (
	errPreempted = errors.New("discovery preempted by a newer session")
	errCancelled = errors.New("discovery cancelled")
)
