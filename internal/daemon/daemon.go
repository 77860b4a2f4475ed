// Package daemon wires the bridgewatch components together and exposes the
// operations UI adapters and the CLI invoke.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/bridgewatch/internal/api"
	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/config"
	"git.home.luguber.info/inful/bridgewatch/internal/discovery"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/events"
	"git.home.luguber.info/inful/bridgewatch/internal/eventstore"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
	"git.home.luguber.info/inful/bridgewatch/internal/metrics"
	"git.home.luguber.info/inful/bridgewatch/internal/retry"
	"git.home.luguber.info/inful/bridgewatch/internal/settings"
	"git.home.luguber.info/inful/bridgewatch/internal/signal"
	"git.home.luguber.info/inful/bridgewatch/internal/supervisor"
	"git.home.luguber.info/inful/bridgewatch/internal/version"
)

// Status represents the lifecycle state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

const historySize = 50

// Options carries optional collaborators.
type Options struct {
	// ConfigPath enables the config file watcher when set.
	ConfigPath string
	// LogLevel is adjusted on config reload when set.
	LogLevel *slog.LevelVar
	// HTTPClient is used for companion probes; nil uses a cleanhttp client.
	HTTPClient *http.Client
}

// Daemon is the running bridgewatch service.
type Daemon struct {
	mu        sync.RWMutex
	cfg       *config.Config
	opts      Options
	status    atomic.Value // Status
	startTime time.Time

	runCtx    context.Context
	runCancel context.CancelFunc

	settingsStore settings.Store
	settings      *settings.Manager
	client        *companion.Client
	coordinator   *discovery.Coordinator
	supervisor    *supervisor.Supervisor
	scheduler     *Scheduler
	router        *signal.Router

	bus       *events.Bus
	publisher *events.Publisher
	forwarder *events.NATSForwarder

	historyStore eventstore.Store
	history      *eventstore.SessionHistoryProjection

	registry *prometheus.Registry
	recorder metrics.Recorder

	httpServer    *api.Server
	configWatcher *ConfigWatcher
}

var _ api.Service = (*Daemon)(nil)

// New wires every component and loads the persisted settings. Nothing runs
// in the background until Start.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, bwerrors.New(bwerrors.CategoryConfig, bwerrors.SeverityFatal, "configuration is required")
	}

	d := &Daemon{cfg: cfg, opts: opts}
	d.status.Store(StatusStopped)
	d.runCtx, d.runCancel = context.WithCancel(context.Background())

	if err := d.openStores(ctx); err != nil {
		d.closeStores()
		return nil, err
	}

	d.bus = events.NewBus()
	d.publisher = events.NewPublisher(d.bus)

	d.recorder = metrics.NoopRecorder{}
	if cfg.Monitoring.Metrics.Enabled {
		d.registry = prometheus.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}
	observer := metrics.NewObserver(d.recorder)

	d.settings = settings.NewManager(d.settingsStore, slog.Default().With("component", "settings"))
	d.settings.Subscribe(d.publisher)

	scheduler, err := NewScheduler()
	if err != nil {
		d.closeStores()
		return nil, bwerrors.Wrap(err, bwerrors.CategoryDaemon, bwerrors.SeverityFatal, "create scheduler")
	}
	d.scheduler = scheduler

	d.client = companion.NewClient(cfg.Discovery, opts.HTTPClient, slog.Default().With("component", "companion"))
	d.coordinator = discovery.NewCoordinator(cfg.Discovery, d.client, d.settings,
		slog.Default().With("component", "discovery"))
	d.supervisor = supervisor.New(d.scheduler, retry.FromConfig(cfg.Reconnect),
		slog.Default().With("component", "supervisor"))

	d.coordinator.SetReporter(d.supervisor)
	d.coordinator.AddListener(d.publisher)
	d.coordinator.AddListener(observer)
	d.supervisor.SetDiscoverer(d.coordinator)
	d.supervisor.SetContext(d.runCtx)
	d.supervisor.Subscribe(d.publisher)
	d.supervisor.Subscribe(observer)
	d.supervisor.OnReconnectScheduled(func(_ int, delay time.Duration) {
		d.recorder.IncReconnectScheduled()
		d.publisher.Status(fmt.Sprintf("Will retry in %d seconds", int(delay.Round(time.Second)/time.Second)))
	})

	if d.historyStore != nil {
		d.history = eventstore.NewSessionHistoryProjection(d.historyStore, historySize)
		if err := d.history.Rebuild(ctx); err != nil {
			slog.Warn("Failed to rebuild discovery history", logfields.Error(err))
		}
		d.coordinator.AddListener(eventstore.NewRecorder(d.historyStore, d.history,
			slog.Default().With("component", "history")))
	}

	d.router = signal.NewRouter(d.supervisor, d.settings, d.publisher.Status,
		slog.Default().With("component", "signals"))
	d.router.OnSignal(func(t signal.Type) { d.recorder.IncSignal(string(t)) })

	if err := d.settings.Load(ctx, d.seedSettings); err != nil {
		d.closeStores()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) openStores(_ context.Context) error {
	if path := d.cfg.Storage.SettingsDB; path != "" {
		store, err := settings.NewSQLiteStore(path)
		if err != nil {
			return bwerrors.StorageError("open settings store", err).WithContext("path", path)
		}
		d.settingsStore = store
	} else {
		d.settingsStore = settings.NewMemoryStore()
	}

	if path := d.cfg.Storage.HistoryDB; path != "" {
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			return bwerrors.StorageError("open history store", err).WithContext("path", path)
		}
		d.historyStore = store
	}
	return nil
}

func (d *Daemon) closeStores() {
	if d.historyStore != nil {
		if err := d.historyStore.Close(); err != nil {
			slog.Error("Failed to close history store", logfields.Error(err))
		}
		d.historyStore = nil
	}
	if d.settingsStore != nil {
		if err := d.settingsStore.Close(); err != nil {
			slog.Error("Failed to close settings store", logfields.Error(err))
		}
		d.settingsStore = nil
	}
}

// seedSettings applies the configured server to a record that was never
// saved.
func (d *Daemon) seedSettings(s *settings.Settings) {
	if d.cfg.Server.Host != "" {
		s.ServerHost = d.cfg.Server.Host
	}
	if d.cfg.Server.Port != 0 {
		s.ServerPort = d.cfg.Server.Port
	}
}

// Start launches the background components and the initial quiet discovery.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.GetStatus() != StatusStopped {
		return fmt.Errorf("daemon is not in stopped state: %s", d.GetStatus())
	}
	d.status.Store(StatusStarting)
	d.startTime = time.Now()
	slog.Info("Starting bridgewatch daemon", slog.String("version", version.Version))

	d.scheduler.Start(ctx)

	if d.cfg.NATS.Enabled {
		fwd, err := events.NewNATSForwarder(d.cfg.NATS.URL, d.cfg.NATS.SubjectPrefix)
		if err != nil {
			slog.Error("NATS forwarding disabled", logfields.Error(err))
		} else {
			d.forwarder = fwd
			go fwd.Run(d.runCtx, d.bus)
		}
	}

	var opts []api.Option
	if d.registry != nil {
		opts = append(opts, api.WithMetrics(d.cfg.Monitoring.Metrics.Path, metrics.HTTPHandler(d.registry)))
	}
	d.httpServer = api.NewServer(d.cfg.HTTP.Listen, d, opts...)
	if err := d.httpServer.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return err
	}

	if d.opts.ConfigPath != "" {
		cw, err := NewConfigWatcher(d.opts.ConfigPath, d)
		if err == nil {
			err = cw.Start(d.runCtx)
		}
		if err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		} else {
			d.configWatcher = cw
		}
	}

	d.status.Store(StatusRunning)
	host, port := d.settings.Server()
	slog.Info("bridgewatch daemon started",
		slog.String("listen", d.httpServer.ListenAddr()), logfields.Host(host), logfields.Port(port))

	d.coordinator.Launch(d.runCtx, discovery.Request{Quiet: true, Mode: discovery.Preempt, Reason: discovery.ReasonStartup})
	return nil
}

// Run starts the daemon and blocks until ctx ends, then stops it.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return d.Stop(stopCtx)
}

// Stop cancels discovery, stops the timer and the servers and closes the
// stores. It is safe to call on a daemon that never started.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	status := d.GetStatus()
	if status == StatusStopping {
		d.mu.Unlock()
		return nil
	}
	wasRunning := status != StatusStopped
	d.status.Store(StatusStopping)
	watcher, server, forwarder := d.configWatcher, d.httpServer, d.forwarder
	d.configWatcher, d.forwarder = nil, nil
	d.mu.Unlock()

	slog.Info("Stopping bridgewatch daemon")

	// Handlers may still be running; they must not wait on d.mu while the
	// server drains.
	d.supervisor.CancelReconnect()
	d.coordinator.Cancel()
	d.runCancel()

	if watcher != nil {
		_ = watcher.Stop(ctx)
	}
	if err := d.scheduler.Stop(ctx); err != nil && wasRunning {
		slog.Error("Failed to stop scheduler", logfields.Error(err))
	}
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Failed to stop HTTP server", logfields.Error(err))
		}
	}
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			slog.Error("Failed to close NATS forwarder", logfields.Error(err))
		}
	}

	d.mu.Lock()
	d.closeStores()
	d.status.Store(StatusStopped)
	d.mu.Unlock()

	if wasRunning {
		slog.Info("bridgewatch daemon stopped", slog.Duration("uptime", time.Since(d.startTime)))
	}
	return nil
}

// GetStatus returns the lifecycle state.
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// ReloadConfig applies the settings that can change on a live daemon:
// logging level, discovery tuning for the next session and the reconnect
// policy.
func (d *Daemon) ReloadConfig(_ context.Context, next *config.Config) error {
	if next == nil {
		return bwerrors.New(bwerrors.CategoryConfig, bwerrors.SeverityError, "configuration is required")
	}
	d.mu.Lock()
	d.cfg = next
	d.mu.Unlock()

	if d.opts.LogLevel != nil {
		d.opts.LogLevel.Set(next.Monitoring.Logging.Level.SlogLevel())
	}
	d.coordinator.SetConfig(next.Discovery)
	d.supervisor.SetPolicy(retry.FromConfig(next.Reconnect))

	slog.Info("Configuration reloaded",
		slog.String("log_level", string(next.Monitoring.Logging.Level)),
		slog.String("backoff", string(next.Reconnect.Backoff)))
	return nil
}

// Settings exposes the settings manager.
func (d *Daemon) Settings() *settings.Manager { return d.settings }

// Subscribe returns a stream of outbound notifications.
func (d *Daemon) Subscribe() (<-chan events.Notification, func()) {
	return d.bus.Subscribe()
}

// ListenAddr returns the bound HTTP address once started.
func (d *Daemon) ListenAddr() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.httpServer == nil {
		return ""
	}
	return d.httpServer.ListenAddr()
}
