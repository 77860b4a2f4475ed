package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
	"git.home.luguber.info/inful/bridgewatch/internal/daemon"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
)

func newGlobal() *Global {
	return &Global{LogLevel: new(slog.LevelVar)}
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridgewatch.yaml")

	require.NoError(t, RunInit(path, false))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.CurrentVersion, cfg.Version)

	err = RunInit(path, false)
	require.Error(t, err)
	assert.True(t, bwerrors.IsCategory(err, bwerrors.CategoryConfig))

	require.NoError(t, RunInit(path, true))
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing default path falls back to defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, fromFile, err := loadConfig(newGlobal(), &CLI{Config: DefaultConfigPath})
		require.NoError(t, err)
		assert.False(t, fromFile)
		assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	})

	t.Run("missing explicit path is an error", func(t *testing.T) {
		_, _, err := loadConfig(newGlobal(), &CLI{Config: filepath.Join(t.TempDir(), "nope.yaml")})
		assert.True(t, bwerrors.IsCategory(err, bwerrors.CategoryConfig))
	})

	t.Run("verbose wins over configured level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bw.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\nmonitoring:\n  logging:\n    level: error\n"), 0o600))

		g := newGlobal()
		_, fromFile, err := loadConfig(g, &CLI{Config: path, Verbose: true})
		require.NoError(t, err)
		assert.True(t, fromFile)
		assert.Equal(t, slog.LevelDebug, g.LogLevel.Level())
	})
}

// writeConfig writes a configuration that probes only 127.0.0.1:port.
func writeConfig(t *testing.T, port int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bw.yaml")
	body := fmt.Sprintf(`version: "1.0"
server:
  host: 127.0.0.1
  port: %d
discovery:
  local_hosts: ["127.0.0.1"]
  lan_prefixes: []
  default_port: %d
  fallback_start: %d
  test_timeout: 1s
storage:
  settings_db: %s
`, port, port, port, filepath.Join(dir, "settings.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func companionPort(t *testing.T) int {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.identity":
			_, _ = w.Write([]byte(`{"name":"Browser Tools Server","version":"1.2.0","signature":"mcp-browser-connector-24x7"}`))
		case "/wipelogs":
			_, _ = w.Write([]byte(`{"message":"All logs cleared successfully"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv.Listener.Addr().(*net.TCPAddr).Port
}

func TestDiscoverCommand(t *testing.T) {
	port := companionPort(t)
	root := &CLI{Config: writeConfig(t, port)}

	require.NoError(t, (&DiscoverCmd{Timeout: 10 * time.Second}).Run(newGlobal(), root))
}

func TestTestCommandWrongPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	root := &CLI{Config: writeConfig(t, port)}
	err = (&TestCmd{}).Run(newGlobal(), root)
	require.Error(t, err)
	assert.True(t, bwerrors.IsCategory(err, bwerrors.CategoryNetwork))
}

func TestWithDaemonPrintsStatus(t *testing.T) {
	port := companionPort(t)
	root := &CLI{Config: writeConfig(t, port)}

	var out bytes.Buffer
	err := withDaemon(newGlobal(), root, 10*time.Second, &out, func(ctx context.Context, d *daemon.Daemon) error {
		_, err := d.WipeLogs(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "All logs cleared successfully")
}
