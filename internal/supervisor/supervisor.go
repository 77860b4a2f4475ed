// Package supervisor owns the connection state and decides when discovery
// runs again: after a disconnect, on page refresh and on explicit requests.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/discovery"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
	"git.home.luguber.info/inful/bridgewatch/internal/retry"
)

// ConnectionState is the current view of the companion connection.
type ConnectionState struct {
	Connected bool                `json:"connected"`
	Identity  *companion.Identity `json:"identity,omitempty"`
}

// Discoverer is the part of the discovery coordinator the supervisor drives.
type Discoverer interface {
	InProgress() bool
	Launch(ctx context.Context, req discovery.Request) bool
}

// Timer runs one-shot jobs.
type Timer interface {
	ScheduleOnce(name string, delay time.Duration, fn func()) (jobID string, err error)
	Cancel(jobID string)
}

// Observer is told about connection state transitions.
type Observer interface {
	ConnectionStateChanged(state ConnectionState)
}

// ReconnectInfo describes the pending automatic reconnect.
type ReconnectInfo struct {
	Pending bool      `json:"pending"`
	At      time.Time `json:"at,omitzero"`
	Attempt int       `json:"attempt"`
}

const reconnectJobName = "reconnect"

// Supervisor is the only writer of ConnectionState. Notifications are
// idempotent: repeating the current state changes nothing observable.
type Supervisor struct {
	timer  Timer
	policy retry.Policy
	logger *slog.Logger

	mu          sync.Mutex
	ctx         context.Context
	discoverer  Discoverer
	state       ConnectionState
	observers   []Observer
	onScheduled func(attempt int, delay time.Duration)

	// reconnect bookkeeping has its own lock so timer callbacks never wait
	// on state updates.
	rmu        sync.Mutex
	pendingID  string
	pendingGen uint64
	pendingAt  time.Time
	attempts   int
}

func New(timer Timer, policy retry.Policy, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		timer:  timer,
		policy: policy,
		logger: logger,
		ctx:    context.Background(),
	}
}

// SetDiscoverer injects the discovery coordinator.
func (s *Supervisor) SetDiscoverer(d Discoverer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discoverer = d
}

// OnReconnectScheduled registers a hook called whenever a reconnect is scheduled.
func (s *Supervisor) OnReconnectScheduled(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onScheduled = fn
}

// SetContext sets the lifetime context handed to sessions the supervisor starts.
func (s *Supervisor) SetContext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

// SetPolicy swaps the reconnect delay policy. A pending reconnect keeps its time.
func (s *Supervisor) SetPolicy(p retry.Policy) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	s.policy = p
}

// Subscribe registers an observer.
func (s *Supervisor) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// State returns the current connection state.
func (s *Supervisor) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// ReportConnected records a validated server. The identity is always
// overwritten; observers hear about it only on a transition.
func (s *Supervisor) ReportConnected(id companion.Identity) {
	s.CancelReconnect()
	s.rmu.Lock()
	s.attempts = 0
	s.rmu.Unlock()

	s.mu.Lock()
	changed := !s.state.Connected
	s.state = ConnectionState{Connected: true, Identity: &id}
	snapshot, observers := copyState(s.state), s.observersLocked()
	s.mu.Unlock()

	if changed {
		s.logger.Info("Connected to server", logfields.Host(id.Host), logfields.Port(id.Port),
			slog.String("version", id.Version))
		notify(observers, snapshot)
	}
}

// ReportDisconnected clears the connection and, unless a discovery session
// is running, schedules one reconnect attempt.
func (s *Supervisor) ReportDisconnected() {
	s.mu.Lock()
	changed := s.state.Connected
	s.state = ConnectionState{}
	snapshot, observers := copyState(s.state), s.observersLocked()
	d := s.discoverer
	s.mu.Unlock()

	if changed {
		s.logger.Info("Disconnected from server")
		notify(observers, snapshot)
	}
	if d != nil && d.InProgress() {
		return
	}
	attempt, delay, ok := s.scheduleReconnect()
	if !ok {
		return
	}

	s.mu.Lock()
	hook := s.onScheduled
	s.mu.Unlock()
	if hook != nil {
		hook(attempt, delay)
	}
}

// CancelReconnect drops the pending reconnect, if any.
func (s *Supervisor) CancelReconnect() {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	s.cancelPendingLocked()
}

// Reconnect returns the state of the automatic reconnect.
func (s *Supervisor) Reconnect() ReconnectInfo {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return ReconnectInfo{Pending: s.pendingID != "", At: s.pendingAt, Attempt: s.attempts}
}

// PageRefreshed restarts discovery quietly, replacing any running session,
// whatever the connection state.
func (s *Supervisor) PageRefreshed() {
	s.logger.Info("Page refreshed, restarting discovery")
	s.launch(discovery.Request{Quiet: true, Mode: discovery.Preempt, Reason: discovery.ReasonPageRefresh})
}

// DiscoveryRequested starts a quiet session unless one is already running.
func (s *Supervisor) DiscoveryRequested() bool {
	started := s.launch(discovery.Request{Quiet: true, Mode: discovery.IfIdle, Reason: discovery.ReasonRequested})
	if !started {
		s.logger.Debug("Discovery already in progress, ignoring request")
	}
	return started
}

func (s *Supervisor) launch(req discovery.Request) bool {
	s.mu.Lock()
	d, ctx := s.discoverer, s.ctx
	s.mu.Unlock()
	if d == nil {
		s.logger.Error("Supervisor discoverer not set")
		return false
	}
	return d.Launch(ctx, req)
}

func (s *Supervisor) scheduleReconnect() (int, time.Duration, bool) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	s.cancelPendingLocked()
	s.attempts++
	delay := s.policy.Delay(s.attempts)

	s.pendingGen++
	gen := s.pendingGen
	id, err := s.timer.ScheduleOnce(reconnectJobName, delay, func() { s.reconnectFired(gen) })
	if err != nil {
		s.logger.Error("Failed to schedule reconnect", logfields.Error(err))
		return 0, 0, false
	}
	s.pendingID = id
	s.pendingAt = time.Now().Add(delay)
	s.logger.Info("Reconnect scheduled", logfields.JobID(id), logfields.Attempt(s.attempts), logfields.Duration(delay))
	return s.attempts, delay, true
}

// reconnectFired ignores fires of jobs that were replaced or cancelled.
func (s *Supervisor) reconnectFired(gen uint64) {
	s.rmu.Lock()
	if s.pendingID == "" || gen != s.pendingGen {
		s.rmu.Unlock()
		return
	}
	s.pendingID = ""
	s.pendingAt = time.Time{}
	attempt := s.attempts
	s.rmu.Unlock()

	s.logger.Info("Reconnect timer fired, restarting discovery", logfields.Attempt(attempt))
	s.launch(discovery.Request{Quiet: true, Mode: discovery.Preempt, Reason: discovery.ReasonReconnect})
}

func (s *Supervisor) cancelPendingLocked() {
	if s.pendingID == "" {
		return
	}
	s.timer.Cancel(s.pendingID)
	s.pendingID = ""
	s.pendingAt = time.Time{}
}

func (s *Supervisor) observersLocked() []Observer {
	return append([]Observer(nil), s.observers...)
}

func notify(observers []Observer, state ConnectionState) {
	for _, o := range observers {
		o.ConnectionStateChanged(state)
	}
}

func copyState(st ConnectionState) ConnectionState {
	if st.Identity != nil {
		id := *st.Identity
		st.Identity = &id
	}
	return st
}
