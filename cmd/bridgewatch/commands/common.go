// Package commands implements the bridgewatch CLI commands.
package commands

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
)

// DefaultConfigPath is used when -c is not given.
const DefaultConfigPath = "bridgewatch.yaml"

// Global is shared state handed to every command.
type Global struct {
	Logger   *slog.Logger
	LogLevel *slog.LevelVar
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"bridgewatch.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Watch    WatchCmd    `cmd:"" default:"1" help:"Run the daemon: discover the server, keep the connection supervised and serve UI adapters"`
	Discover DiscoverCmd `cmd:"" help:"Run one visible discovery and print the result"`
	Test     TestCmd     `cmd:"" help:"Test the connection to the configured or given server"`
	WipeLogs WipeLogsCmd `cmd:"" name:"wipe-logs" help:"Ask the server to clear its collected logs"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing and installs a default logger. Commands
// that load a configuration refine it with configureLogging.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	if g.LogLevel == nil {
		g.LogLevel = new(slog.LevelVar)
	}
	if c.Verbose {
		g.LogLevel.Set(slog.LevelDebug)
	}
	g.Logger = config.NewLogger(os.Stderr, config.LogFormatText, g.LogLevel)
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig reads the configuration file. A missing file at the default
// path falls back to built-in defaults; a missing explicit path is an error.
func loadConfig(g *Global, root *CLI) (*config.Config, bool, error) {
	if _, err := os.Stat(root.Config); errors.Is(err, fs.ErrNotExist) {
		if root.Config != DefaultConfigPath {
			return nil, false, bwerrors.ConfigNotFound(root.Config)
		}
		slog.Info("No configuration file found, using defaults", slog.String("path", root.Config))
		cfg := config.Default()
		configureLogging(g, cfg, root.Verbose)
		return cfg, false, nil
	}

	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, false, bwerrors.ConfigInvalid(root.Config, err)
	}
	configureLogging(g, cfg, root.Verbose)
	return cfg, true, nil
}

// configureLogging applies the logging section; -v always wins.
func configureLogging(g *Global, cfg *config.Config, verbose bool) {
	level := cfg.Monitoring.Logging.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	g.LogLevel.Set(level)
	g.Logger = config.NewLogger(os.Stderr, cfg.Monitoring.Logging.Format, g.LogLevel)
	slog.SetDefault(g.Logger)
}
