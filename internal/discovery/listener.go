package discovery

import (
	"git.home.luguber.info/inful/bridgewatch/internal/companion"
)

// SessionInfo identifies a started session.
type SessionInfo struct {
	ID     string
	Quiet  bool
	Reason string
	Plan   Plan
}

// Progress is a user-facing status line emitted during a session.
type Progress struct {
	SessionID string
	Phase     int
	Target    Target
	Message   string
}

// Listener observes sessions. Calls are made synchronously from the session
// goroutine, so implementations must not block.
type Listener interface {
	SessionStarted(info SessionInfo)
	Progress(p Progress)
	ProbeFinished(sessionID string, phase int, res companion.ProbeResult)
	SessionFinished(res Result)
}

// Listeners fans out to several listeners.
type Listeners []Listener

func (ls Listeners) SessionStarted(info SessionInfo) {
	for _, l := range ls {
		l.SessionStarted(info)
	}
}

func (ls Listeners) Progress(p Progress) {
	for _, l := range ls {
		l.Progress(p)
	}
}

func (ls Listeners) ProbeFinished(sessionID string, phase int, res companion.ProbeResult) {
	for _, l := range ls {
		l.ProbeFinished(sessionID, phase, res)
	}
}

func (ls Listeners) SessionFinished(res Result) {
	for _, l := range ls {
		l.SessionFinished(res)
	}
}
