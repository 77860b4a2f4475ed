package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration version Load accepts.
const CurrentVersion = "1.0"

// Config is the bridgewatch configuration file.
type Config struct {
	Version    string           `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Storage    StorageConfig    `yaml:"storage"`
	HTTP       HTTPConfig       `yaml:"http"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	NATS       NATSConfig       `yaml:"nats"`
}

// ServerConfig seeds the settings record on first start. Once settings are
// persisted the stored values win.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DiscoveryConfig tunes candidate construction and probing.
type DiscoveryConfig struct {
	IdentityPath  string   `yaml:"identity_path"`
	WipePath      string   `yaml:"wipe_path"`
	Signature     string   `yaml:"signature"`
	DefaultPort   int      `yaml:"default_port"`
	FallbackStart int      `yaml:"fallback_start"`
	LocalHosts    []string `yaml:"local_hosts"`
	LANPrefixes   []string `yaml:"lan_prefixes"`
	LANOctets     int      `yaml:"lan_octets"`
	ScanTimeout   string   `yaml:"scan_timeout"`
	TestTimeout   string   `yaml:"test_timeout"`
}

// ReconnectConfig drives the reconnect timer.
type ReconnectConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
}

// StorageConfig locates the sqlite databases. An empty HistoryDB disables
// the discovery history log; an empty SettingsDB keeps settings in memory.
type StorageConfig struct {
	SettingsDB string `yaml:"settings_db"`
	HistoryDB  string `yaml:"history_db"`
}

// HTTPConfig configures the UI adapter endpoint.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// MonitoringConfig represents metrics and logging configuration.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// NATSConfig enables forwarding of outbound notifications.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Load reads, expands, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration bytes. Environment references are expanded
// before decoding.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)
	}

	normalize(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns a fully defaulted configuration without reading a file.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	applyDefaults(cfg)
	return cfg
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Storage.SettingsDB = "./bridgewatch.db"
	example.Storage.HistoryDB = "./bridgewatch-history.db"
	example.Monitoring.Metrics.Enabled = true
	example.NATS.URL = "${NATS_URL}"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ScanTimeoutDuration returns the parsed per-probe timeout used while scanning.
func (d DiscoveryConfig) ScanTimeoutDuration() time.Duration {
	return parseDurationOr(d.ScanTimeout, DefaultScanTimeout)
}

// TestTimeoutDuration returns the parsed timeout of the explicit connection test.
func (d DiscoveryConfig) TestTimeoutDuration() time.Duration {
	return parseDurationOr(d.TestTimeout, DefaultTestTimeout)
}

func (r ReconnectConfig) InitialDelayDuration() time.Duration {
	return parseDurationOr(r.InitialDelay, DefaultReconnectDelay)
}

func (r ReconnectConfig) MaxDelayDuration() time.Duration {
	return parseDurationOr(r.MaxDelay, DefaultReconnectDelay)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
