package config

import (
	"strings"
	"time"
)

const (
	DefaultHost           = "localhost"
	DefaultPort           = 3035
	DefaultFallbackStart  = 3026
	DefaultIdentityPath   = "/.identity"
	DefaultWipePath       = "/wipelogs"
	DefaultSignature      = "mcp-browser-connector-24x7"
	DefaultLANOctets      = 5
	DefaultScanTimeout    = 500 * time.Millisecond
	DefaultTestTimeout    = 5 * time.Second
	DefaultReconnectDelay = 30 * time.Second
	DefaultListen         = "127.0.0.1:3040"
	DefaultMetricsPath    = "/metrics"
	DefaultSubjectPrefix  = "bridgewatch"
)

var (
	defaultLocalHosts  = []string{"localhost", "127.0.0.1"}
	defaultLANPrefixes = []string{"192.168.0.", "192.168.1.", "10.0.0.", "10.0.1."}
)

// normalize case-folds enumerations and trims free-form fields before defaults apply.
func normalize(cfg *Config) {
	cfg.Server.Host = strings.TrimSpace(cfg.Server.Host)
	cfg.Reconnect.Backoff = NormalizeRetryBackoff(string(cfg.Reconnect.Backoff))
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	if p := cfg.Discovery.IdentityPath; p != "" && !strings.HasPrefix(p, "/") {
		cfg.Discovery.IdentityPath = "/" + p
	}
	if p := cfg.Discovery.WipePath; p != "" && !strings.HasPrefix(p, "/") {
		cfg.Discovery.WipePath = "/" + p
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}

	d := &cfg.Discovery
	if d.IdentityPath == "" {
		d.IdentityPath = DefaultIdentityPath
	}
	if d.WipePath == "" {
		d.WipePath = DefaultWipePath
	}
	if d.Signature == "" {
		d.Signature = DefaultSignature
	}
	if d.DefaultPort == 0 {
		d.DefaultPort = DefaultPort
	}
	if d.FallbackStart == 0 {
		d.FallbackStart = DefaultFallbackStart
	}
	if len(d.LocalHosts) == 0 {
		d.LocalHosts = append([]string(nil), defaultLocalHosts...)
	}
	if d.LANPrefixes == nil {
		d.LANPrefixes = append([]string(nil), defaultLANPrefixes...)
	}
	if d.LANOctets == 0 {
		d.LANOctets = DefaultLANOctets
	}
	if d.ScanTimeout == "" {
		d.ScanTimeout = DefaultScanTimeout.String()
	}
	if d.TestTimeout == "" {
		d.TestTimeout = DefaultTestTimeout.String()
	}

	r := &cfg.Reconnect
	if r.Backoff == "" {
		r.Backoff = RetryBackoffFixed
	}
	if r.InitialDelay == "" {
		r.InitialDelay = DefaultReconnectDelay.String()
	}
	if r.MaxDelay == "" {
		r.MaxDelay = r.InitialDelay
	}

	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = DefaultListen
	}
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Monitoring.Logging.Level == "" {
		cfg.Monitoring.Logging.Level = LogLevelInfo
	}
	if cfg.Monitoring.Logging.Format == "" {
		cfg.Monitoring.Logging.Format = LogFormatText
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
}
