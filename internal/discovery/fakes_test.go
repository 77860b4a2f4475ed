package discovery

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
)

// fakeProber answers from a table; unknown targets are unreachable.
type fakeProber struct {
	mu        sync.Mutex
	answers   map[Target]companion.Outcome
	reported  map[Target]int
	delay     time.Duration
	onCheck   func(t Target)
	calls     []Target
	inFlight  int
	maxFlight int
	started   chan Target
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		answers:  map[Target]companion.Outcome{},
		reported: map[Target]int{},
		started:  make(chan Target, 1024),
	}
}

func (p *fakeProber) answer(host string, port int, o companion.Outcome) *fakeProber {
	p.answers[Target{Host: host, Port: port}] = o
	return p
}

func (p *fakeProber) Check(ctx context.Context, host string, port int, timeout time.Duration) companion.ProbeResult {
	t := Target{Host: host, Port: port}

	p.mu.Lock()
	p.calls = append(p.calls, t)
	p.inFlight++
	if p.inFlight > p.maxFlight {
		p.maxFlight = p.inFlight
	}
	outcome, ok := p.answers[t]
	reported := p.reported[t]
	delay := p.delay
	onCheck := p.onCheck
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	p.started <- t
	if onCheck != nil {
		onCheck(t)
	}

	res := companion.ProbeResult{Host: host, Port: port, Outcome: companion.Unreachable}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			res.Outcome = companion.Cancelled
			return res
		}
	}
	if !ok {
		return res
	}
	res.Outcome = outcome
	if outcome == companion.Matched {
		idPort := port
		if reported != 0 {
			idPort = reported
		}
		res.Identity = &companion.Identity{
			Name:      "Browser Tools Server",
			Signature: "mcp-browser-connector-24x7",
			Host:      host,
			Port:      idPort,
		}
	}
	return res
}

func (p *fakeProber) setDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

func (p *fakeProber) Calls() []Target {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Target(nil), p.calls...)
}

func (p *fakeProber) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxFlight
}

type fakeServers struct {
	mu   sync.Mutex
	host string
	port int
	sets int
}

func (s *fakeServers) Server() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host, s.port
}

func (s *fakeServers) SetServer(_ context.Context, host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host, s.port = host, port
	s.sets++
	return nil
}

func (s *fakeServers) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// fakeReporter records calls and whether a session occupied the slot at the time.
type fakeReporter struct {
	mu                     sync.Mutex
	coord                  *Coordinator
	connected              []companion.Identity
	disconnected           int
	inProgressOnDisconnect []bool
	reconnectCancels       int
}

func (r *fakeReporter) ReportConnected(id companion.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = append(r.connected, id)
}

func (r *fakeReporter) ReportDisconnected() {
	busy := r.coord.InProgress()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected++
	r.inProgressOnDisconnect = append(r.inProgressOnDisconnect, busy)
}

func (r *fakeReporter) CancelReconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconnectCancels++
}

func (r *fakeReporter) snapshot() (connected int, disconnected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connected), r.disconnected
}

type recordingListener struct {
	mu       sync.Mutex
	started  []SessionInfo
	progress []Progress
	probes   []int
	finished []Result
}

func (l *recordingListener) SessionStarted(info SessionInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, info)
}

func (l *recordingListener) Progress(p Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, p)
}

func (l *recordingListener) ProbeFinished(_ string, phase int, _ companion.ProbeResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.probes = append(l.probes, phase)
}

func (l *recordingListener) SessionFinished(res Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, res)
}

func (l *recordingListener) Finished() []Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Result(nil), l.finished...)
}

// teardownListener holds every SessionFinished call for a while and counts
// sessions between their start and the end of that call.
type teardownListener struct {
	hold time.Duration

	mu        sync.Mutex
	active    int
	maxActive int
	finishing bool
}

func (l *teardownListener) SessionStarted(SessionInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active++
	if l.active > l.maxActive {
		l.maxActive = l.active
	}
}

func (l *teardownListener) Progress(Progress) {}

func (l *teardownListener) ProbeFinished(string, int, companion.ProbeResult) {}

func (l *teardownListener) SessionFinished(Result) {
	l.mu.Lock()
	l.finishing = true
	l.mu.Unlock()

	time.Sleep(l.hold)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.active--
	l.finishing = false
}

func (l *teardownListener) Finishing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finishing
}

func (l *teardownListener) MaxActive() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxActive
}
