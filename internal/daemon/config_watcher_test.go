package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
)

type reloadTarget struct {
	mu       sync.Mutex
	cfg      *config.Config
	reloaded []*config.Config
}

func (r *reloadTarget) Config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

func (r *reloadTarget) ReloadConfig(_ context.Context, cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.reloaded = append(r.reloaded, cfg)
	return nil
}

func (r *reloadTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reloaded)
}

const watchedConfig = `version: "1.0"
monitoring:
  logging:
    level: %s
`

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(watchedConfig, level)), 0o600))
}

func TestConfigWatcher_ReloadsAfterChangesSettle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridgewatch.yaml")
	writeConfig(t, path, "info")

	target := &reloadTarget{cfg: config.Default()}
	cw, err := NewConfigWatcher(path, target)
	require.NoError(t, err)
	cw.debounceTime = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cw.Start(ctx))
	t.Cleanup(func() { _ = cw.Stop(context.Background()) })

	writeConfig(t, path, "warn")
	writeConfig(t, path, "debug")

	require.Eventually(t, func() bool { return target.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, 1, target.count(), "rapid writes collapse into one reload")
	assert.Equal(t, config.LogLevelDebug, target.Config().Monitoring.Logging.Level)
}

func TestConfigWatcher_IgnoresInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridgewatch.yaml")
	writeConfig(t, path, "info")

	target := &reloadTarget{cfg: config.Default()}
	cw, err := NewConfigWatcher(path, target)
	require.NoError(t, err)
	cw.debounceTime = 50 * time.Millisecond

	require.NoError(t, cw.Start(context.Background()))
	t.Cleanup(func() { _ = cw.Stop(context.Background()) })

	require.NoError(t, os.WriteFile(path, []byte("version: \"2.0\"\n"), 0o600))
	time.Sleep(400 * time.Millisecond)
	assert.Zero(t, target.count())
}

func TestConfigWatcher_StopTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridgewatch.yaml")
	writeConfig(t, path, "info")

	cw, err := NewConfigWatcher(path, &reloadTarget{})
	require.NoError(t, err)
	require.NoError(t, cw.Start(context.Background()))
	require.NoError(t, cw.Stop(context.Background()))
	require.NoError(t, cw.Stop(context.Background()))
}
