package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/config"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
)

// Prober checks a single host/port for the companion server.
type Prober interface {
	Check(ctx context.Context, host string, port int, timeout time.Duration) companion.ProbeResult
}

// ServerStore reads and records the configured server.
type ServerStore interface {
	Server() (host string, port int)
	SetServer(ctx context.Context, host string, port int) error
}

// Reporter receives the connection-relevant outcomes of sessions.
type Reporter interface {
	ReportConnected(id companion.Identity)
	ReportDisconnected()
	// CancelReconnect drops a pending automatic reconnect; the outcome of
	// the starting session decides whether a new one is needed.
	CancelReconnect()
}

// session is one in-flight scan. It is owned by the coordinator slot until
// it finishes or is replaced.
type session struct {
	id     string
	req    Request
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
	prev   *session
}

// Coordinator holds the single current discovery session. Replacing a
// session cancels the old one and waits for its teardown before the new one
// probes anything, so at most one session scans at any time.
type Coordinator struct {
	prober   Prober
	servers  ServerStore
	reporter Reporter
	listener Listener
	logger   *slog.Logger

	mu       sync.Mutex
	cfg      config.DiscoveryConfig
	current  *session
	draining *session // released by Cancel, not torn down yet
	tail     *session // newest session whose done is still open
	last     *Result
}

// NewCoordinator wires a coordinator. reporter and listener may be set later
// with SetReporter/AddListener before the first session starts.
func NewCoordinator(cfg config.DiscoveryConfig, prober Prober, servers ServerStore, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		prober:   prober,
		servers:  servers,
		listener: Listeners(nil),
		logger:   logger,
		cfg:      cfg,
	}
}

// SetReporter sets where connected/disconnected outcomes go.
func (c *Coordinator) SetReporter(r Reporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reporter = r
}

// AddListener registers a session observer.
func (c *Coordinator) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ls, ok := c.listener.(Listeners); ok {
		c.listener = append(ls, l)
		return
	}
	c.listener = Listeners{c.listener, l}
}

// SetConfig swaps discovery tuning. Running sessions keep their plan.
func (c *Coordinator) SetConfig(cfg config.DiscoveryConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// InProgress reports whether a session occupies the slot or is still tearing
// down after Cancel.
func (c *Coordinator) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil || c.draining != nil
}

// LastResult returns the most recent finished session, if any.
func (c *Coordinator) LastResult() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Discover runs a session on the calling goroutine and returns its result.
// A running session is always preempted.
func (c *Coordinator) Discover(ctx context.Context, req Request) Result {
	req.Mode = Preempt
	s, _ := c.begin(ctx, req)
	return c.run(s)
}

// Start runs a preempting session and reports whether a server was found.
func (c *Coordinator) Start(ctx context.Context, quiet bool) bool {
	return c.Discover(ctx, Request{Quiet: quiet, Reason: ReasonUser}).Outcome == Found
}

// Launch starts a session in the background. It returns false when req.Mode
// is IfIdle and a session is already running.
func (c *Coordinator) Launch(ctx context.Context, req Request) bool {
	s, ok := c.begin(ctx, req)
	if !ok {
		return false
	}
	go c.run(s)
	return true
}

// Cancel stops the current session, if any, and returns once it has torn
// down. It is safe to call repeatedly. It must not be called from a Listener
// or Reporter callback.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	s := c.current
	if s != nil {
		c.current = nil
		c.draining = s
	} else {
		s = c.draining
	}
	c.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel(errCancelled)
	<-s.done
}

// begin reserves the slot. Check-and-store happens under one lock. The new
// session waits for the newest unfinished one, whether it was preempted,
// cancelled or is still reporting its own outcome.
func (c *Coordinator) begin(parent context.Context, req Request) (*session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Mode == IfIdle && (c.current != nil || c.draining != nil) {
		return nil, false
	}

	ctx, cancel := context.WithCancelCause(parent)
	s := &session{
		id:     uuid.NewString(),
		req:    req,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		prev:   c.tail,
	}
	if c.current != nil {
		c.current.cancel(errPreempted)
	}
	c.current = s
	c.tail = s
	return s, true
}

// release forgets s once its teardown is complete.
func (c *Coordinator) release(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draining == s {
		c.draining = nil
	}
	if c.tail == s {
		c.tail = nil
	}
}

func (c *Coordinator) run(s *session) (res Result) {
	defer c.release(s)
	defer close(s.done)
	defer s.cancel(nil)

	if s.prev != nil {
		<-s.prev.done
		s.prev = nil
	}

	start := time.Now()
	res = Result{SessionID: s.id, Quiet: s.req.Quiet, Reason: s.req.Reason}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("discovery panic: %v", r)
		}
		res.Duration = time.Since(start)
		c.finish(s, &res)
	}()

	if s.ctx.Err() != nil {
		res.Outcome = Cancelled
		res.Err = context.Cause(s.ctx)
		return res
	}

	c.mu.Lock()
	cfg := c.cfg
	reporter := c.reporter
	listener := c.listener
	c.mu.Unlock()

	if reporter != nil {
		reporter.CancelReconnect()
	}

	host, port := c.servers.Server()
	plan := BuildPlan(BuildCandidates(host, port, cfg), func(h string) bool { return IsLocalHost(h, cfg) })

	c.logger.Info("Discovery session started",
		logfields.SessionID(s.id), logfields.Quiet(s.req.Quiet), logfields.Reason(s.req.Reason),
		slog.Int("candidates", plan.Len()))
	listener.SessionStarted(SessionInfo{ID: s.id, Quiet: s.req.Quiet, Reason: s.req.Reason, Plan: plan})
	if !s.req.Quiet {
		listener.Progress(Progress{SessionID: s.id, Message: "Searching for server..."})
	}

	sc := scan{
		session:  s,
		prober:   c.prober,
		listener: listener,
		timeout:  cfg.ScanTimeoutDuration(),
	}
	sc.run(plan, &res)
	return res
}

// finish commits the outcome. Whether the session was cancelled is decided
// under the slot lock, so a session replaced after this point has already
// released the slot and cannot be cancelled anymore.
func (c *Coordinator) finish(s *session, res *Result) {
	c.mu.Lock()
	if res.Outcome != Cancelled && s.ctx.Err() != nil {
		res.Outcome = Cancelled
		res.Identity = nil
		res.Err = context.Cause(s.ctx)
	}
	if c.current == s {
		c.current = nil
	}
	last := *res
	c.last = &last
	reporter := c.reporter
	listener := c.listener
	c.mu.Unlock()

	attrs := []any{
		logfields.SessionID(s.id), logfields.Outcome(res.Outcome.String()),
		slog.Int("checked", res.Checked), logfields.Duration(res.Duration),
	}

	switch res.Outcome {
	case Found:
		id := *res.Identity
		c.logger.Info("Discovery found server", append(attrs, logfields.Host(id.Host), logfields.Port(id.Port))...)
		if err := c.servers.SetServer(context.WithoutCancel(s.ctx), id.Host, id.Port); err != nil {
			c.logger.Warn("Failed to persist discovered server", logfields.Error(err))
		}
		if reporter != nil {
			reporter.ReportConnected(id)
		}
	case Exhausted, Failed:
		if res.Err != nil {
			attrs = append(attrs, logfields.Error(res.Err))
		}
		c.logger.Warn("Discovery ended without a server", attrs...)
		if reporter != nil {
			reporter.ReportDisconnected()
		}
	default:
		c.logger.Info("Discovery cancelled", append(attrs, logfields.Reason(fmt.Sprint(res.Err)))...)
	}
	listener.SessionFinished(*res)
}
