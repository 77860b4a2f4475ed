package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/settings"
	"git.home.luguber.info/inful/bridgewatch/internal/signal"
)

const signature = "mcp-browser-connector-24x7"

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// fakeCompanion starts a fake companion server. reportedPort 0 reports the
// server's own port.
func fakeCompanion(t *testing.T, sig string, reportedPort int) int {
	t.Helper()
	var port int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/.identity":
			p := reportedPort
			if p == 0 {
				p = port
			}
			fmt.Fprintf(w, `{"name":"Browser Tools Server","version":"1.2.0","signature":%q,"port":%d}`, sig, p)
		case "/wipelogs":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			_, _ = w.Write([]byte(`{"message":"All logs cleared successfully"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	port = srv.Listener.Addr().(*net.TCPAddr).Port
	return port
}

// testConfig probes only 127.0.0.1 on the configured port and fallbackPort.
func testConfig(t *testing.T, configuredPort, fallbackPort int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = configuredPort
	cfg.Discovery.LocalHosts = []string{"127.0.0.1"}
	cfg.Discovery.LANPrefixes = []string{}
	cfg.Discovery.DefaultPort = fallbackPort
	cfg.Discovery.FallbackStart = fallbackPort
	cfg.Discovery.TestTimeout = "1s"
	cfg.HTTP.Listen = "127.0.0.1:0"
	cfg.Storage.SettingsDB = filepath.Join(dir, "settings.db")
	cfg.Storage.HistoryDB = filepath.Join(dir, "history.db")
	cfg.Monitoring.Metrics.Enabled = true
	return cfg
}

func newDaemon(t *testing.T, cfg *config.Config, opts Options) *Daemon {
	t.Helper()
	d, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	})
	return d
}

func TestDaemon_StartupDiscoveryFindsFallbackPort(t *testing.T) {
	srvPort := fakeCompanion(t, signature, 0)
	d := newDaemon(t, testConfig(t, closedPort(t), srvPort), Options{})

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, StatusRunning, d.GetStatus())

	require.Eventually(t, func() bool { return d.Status().Connection.Connected }, 5*time.Second, 20*time.Millisecond)

	st := d.Status()
	require.NotNil(t, st.Connection.Identity)
	assert.Equal(t, srvPort, st.Connection.Identity.Port)
	assert.Equal(t, srvPort, st.Settings.ServerPort, "found port is persisted")
	assert.False(t, st.Reconnect.Pending)

	require.Eventually(t, func() bool {
		h := d.History()
		return len(h) == 1 && h[0].Status == "found"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDaemon_NothingListeningSchedulesOneReconnect(t *testing.T) {
	port := closedPort(t)
	d := newDaemon(t, testConfig(t, port, port), Options{})

	before := time.Now()
	require.NoError(t, d.Start(context.Background()))

	require.Eventually(t, func() bool { return d.Status().Reconnect.Pending }, 5*time.Second, 20*time.Millisecond)

	st := d.Status()
	assert.False(t, st.Connection.Connected)
	require.NotNil(t, st.LastDiscovery)
	assert.Equal(t, "exhausted", st.LastDiscovery.Outcome)
	assert.Equal(t, 1, st.Reconnect.Attempt)
	assert.WithinDuration(t, before.Add(30*time.Second), st.Reconnect.At, 5*time.Second)
	assert.Equal(t, 1, d.scheduler.Pending())
}

func TestDaemon_TestConnection(t *testing.T) {
	t.Run("matched with a different reported port updates settings", func(t *testing.T) {
		srvPort := fakeCompanion(t, signature, 4242)
		d := newDaemon(t, testConfig(t, closedPort(t), closedPort(t)), Options{})

		res, err := d.TestConnection(context.Background(), "127.0.0.1", srvPort)
		require.NoError(t, err)
		assert.True(t, res.Connected)
		assert.NoError(t, res.Err)
		assert.Equal(t, 4242, d.Settings().Current().ServerPort)
		assert.True(t, d.Status().Connection.Connected)
	})

	t.Run("wrong service disconnects with a distinct message", func(t *testing.T) {
		srvPort := fakeCompanion(t, "someone-else", 0)
		d := newDaemon(t, testConfig(t, srvPort, srvPort), Options{})

		res, err := d.TestConnection(context.Background(), "", 0)
		require.NoError(t, err)
		assert.False(t, res.Connected)
		assert.Equal(t,
			fmt.Sprintf("Connection failed: Found a server at 127.0.0.1:%d but it's not the Browser Tools server", srvPort),
			res.Message)
		assert.True(t, bwerrors.IsCategory(res.Err, bwerrors.CategoryIdentity))
		assert.False(t, d.Status().Connection.Connected)
		assert.True(t, d.Status().Reconnect.Pending)
	})

	t.Run("unreachable reports connection failed", func(t *testing.T) {
		port := closedPort(t)
		d := newDaemon(t, testConfig(t, port, port), Options{})

		res, err := d.TestConnection(context.Background(), "", 0)
		require.NoError(t, err)
		assert.False(t, res.Connected)
		assert.Contains(t, res.Message, "Connection failed: ")
		assert.True(t, bwerrors.IsCategory(res.Err, bwerrors.CategoryNetwork))
		assert.True(t, d.Status().Reconnect.Pending)
	})
}

func TestDaemon_UpdateSettings(t *testing.T) {
	srvPort := fakeCompanion(t, signature, 0)
	port := closedPort(t)
	d := newDaemon(t, testConfig(t, port, port), Options{})

	logLimit := 99
	saved, test, err := d.UpdateSettings(context.Background(), settings.Patch{LogLimit: &logLimit})
	require.NoError(t, err)
	assert.Nil(t, test, "no server change, no test")
	assert.Equal(t, 99, saved.LogLimit)

	saved, test, err = d.UpdateSettings(context.Background(), settings.Patch{ServerPort: &srvPort})
	require.NoError(t, err)
	require.NotNil(t, test)
	assert.True(t, test.Connected)
	assert.Equal(t, srvPort, saved.ServerPort)
	assert.Equal(t, 99, saved.LogLimit)

	zero := 0
	_, _, err = d.UpdateSettings(context.Background(), settings.Patch{ServerPort: &zero})
	assert.True(t, bwerrors.IsCategory(err, bwerrors.CategoryValidation))
}

func TestDaemon_UpdateSettingsKeepsDiscoveredServer(t *testing.T) {
	port := closedPort(t)
	d := newDaemon(t, testConfig(t, port, port), Options{})

	// Discovery records a server between the client's read and its write.
	require.NoError(t, d.Settings().SetServer(context.Background(), "127.0.0.1", 3031))

	limit := 120
	saved, test, err := d.UpdateSettings(context.Background(), settings.Patch{QueryLimit: &limit})
	require.NoError(t, err)
	assert.Nil(t, test)
	assert.Equal(t, "127.0.0.1", saved.ServerHost)
	assert.Equal(t, 3031, saved.ServerPort)
	assert.Equal(t, 120, saved.QueryLimit)
}

func TestDaemon_SettingsSurviveRestart(t *testing.T) {
	port := closedPort(t)
	cfg := testConfig(t, port, port)

	d, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	_, err = d.Settings().Update(context.Background(), func(s *settings.Settings) {
		s.ServerHost = "10.0.0.7"
		s.AllowAutoPaste = true
	})
	require.NoError(t, err)
	require.NoError(t, d.Stop(context.Background()))

	d2 := newDaemon(t, cfg, Options{})
	cur := d2.Settings().Current()
	assert.Equal(t, "10.0.0.7", cur.ServerHost, "stored record wins over the configured seed")
	assert.True(t, cur.AllowAutoPaste)
}

func TestDaemon_WipeLogs(t *testing.T) {
	srvPort := fakeCompanion(t, signature, 0)
	d := newDaemon(t, testConfig(t, srvPort, srvPort), Options{})

	msg, err := d.WipeLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "All logs cleared successfully", msg)
}

func TestDaemon_Signals(t *testing.T) {
	port := closedPort(t)
	d := newDaemon(t, testConfig(t, port, port), Options{})

	connected := true
	require.NoError(t, d.HandleSignal(signal.Signal{Type: signal.ConnectionStatusUpdate, IsConnected: &connected}))
	st := d.Status()
	require.True(t, st.Connection.Connected)
	assert.Equal(t, "reconnected", st.Connection.Identity.Version)

	err := d.HandleSignal(signal.Signal{Type: "BOGUS"})
	assert.True(t, bwerrors.IsCategory(err, bwerrors.CategoryValidation))
}

func TestDaemon_ReloadConfig(t *testing.T) {
	port := closedPort(t)
	level := new(slog.LevelVar)
	d := newDaemon(t, testConfig(t, port, port), Options{LogLevel: level})

	next := testConfig(t, port, port)
	next.Monitoring.Logging.Level = config.LogLevelDebug
	next.Reconnect.InitialDelay = "5s"
	require.NoError(t, d.ReloadConfig(context.Background(), next))

	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Same(t, next, d.Config())

	_, err := d.TestConnection(context.Background(), "", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), d.Status().Reconnect.At, 2*time.Second)
}

func TestDaemon_HTTPSurface(t *testing.T) {
	port := closedPort(t)
	d := newDaemon(t, testConfig(t, port, port), Options{})
	require.NoError(t, d.Start(context.Background()))

	base := "http://" + d.ListenAddr()
	// The history recorder is the last listener, so metrics are in place
	// once the session shows up there.
	require.Eventually(t, func() bool { return len(d.History()) == 1 }, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"serverPort":`+strconv.Itoa(port))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "bridgewatch_discovery_sessions_total")
	assert.Contains(t, string(body), `bridgewatch_probe_results_total{result="unreachable"}`)
}

func TestDaemon_StopIsIdempotent(t *testing.T) {
	port := closedPort(t)
	d := newDaemon(t, testConfig(t, port, port), Options{})
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, StatusStopped, d.GetStatus())
}
