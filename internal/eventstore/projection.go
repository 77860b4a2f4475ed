package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const statusRunning = "running"

// SessionSummary is the read model of one discovery session.
type SessionSummary struct {
	SessionID   string     `json:"session_id"`
	Status      string     `json:"status"` // running, found, exhausted, cancelled, failed
	Reason      string     `json:"reason,omitempty"`
	Quiet       bool       `json:"quiet"`
	Candidates  int        `json:"candidates"`
	Checked     int        `json:"checked"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Host        string     `json:"host,omitempty"`
	Port        int        `json:"port,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// SessionHistoryProjection keeps the most recent sessions in memory,
// rebuilt from the store at startup and updated as events are recorded.
type SessionHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	sessions map[string]*SessionSummary
	history  []*SessionSummary // finished sessions, newest first
	maxSize  int
}

func NewSessionHistoryProjection(store Store, maxSize int) *SessionHistoryProjection {
	if maxSize <= 0 {
		maxSize = 50
	}
	return &SessionHistoryProjection{
		store:    store,
		sessions: make(map[string]*SessionSummary),
		maxSize:  maxSize,
	}
}

// Rebuild replays every stored event.
func (p *SessionHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = make(map[string]*SessionSummary)
	p.history = nil
	for _, e := range events {
		p.applyLocked(e)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	return nil
}

// Apply processes a single event.
func (p *SessionHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *SessionHistoryProjection) applyLocked(e Event) {
	id := e.SessionID()
	if id == "" {
		return
	}
	summary, ok := p.sessions[id]
	if !ok {
		summary = &SessionSummary{SessionID: id, Status: statusRunning, StartedAt: e.Timestamp()}
		p.sessions[id] = summary
	}

	if e.Type() == TypeDiscoveryStarted {
		var payload StartedPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.Reason = payload.Reason
			summary.Quiet = payload.Quiet
			summary.Candidates = payload.Candidates
		}
		summary.StartedAt = e.Timestamp()
		return
	}

	status, terminal := terminalStatus(e.Type())
	if !terminal {
		return
	}
	var payload FinishedPayload
	if err := json.Unmarshal(e.Payload(), &payload); err == nil {
		summary.Checked = payload.Checked
		summary.Host = payload.Host
		summary.Port = payload.Port
		summary.Error = payload.Error
	}
	ts := e.Timestamp()
	summary.CompletedAt = &ts
	summary.Status = status
	p.addToHistoryLocked(summary)
}

func terminalStatus(eventType string) (string, bool) {
	switch eventType {
	case TypeServerDiscovered:
		return "found", true
	case TypeDiscoveryExhausted:
		return "exhausted", true
	case TypeDiscoveryCancelled:
		return "cancelled", true
	case TypeDiscoveryFailed:
		return "failed", true
	default:
		return "", false
	}
}

func (p *SessionHistoryProjection) addToHistoryLocked(summary *SessionSummary) {
	for _, h := range p.history {
		if h.SessionID == summary.SessionID {
			return
		}
	}
	p.history = append([]*SessionSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}

	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.SessionID] = struct{}{}
	}
	for id, s := range p.sessions {
		if s.Status == statusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.sessions, id)
		}
	}
}

// History returns copies of finished sessions, newest first.
func (p *SessionHistoryProjection) History() []SessionSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]SessionSummary, 0, len(p.history))
	for _, h := range p.history {
		out = append(out, *h)
	}
	return out
}

// Session returns the summary of one session.
func (p *SessionHistoryProjection) Session(id string) (SessionSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sessions[id]
	if !ok {
		return SessionSummary{}, false
	}
	return *s, true
}
