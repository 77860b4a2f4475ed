package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks a defaulted configuration. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if err := ValidatePort(cfg.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port: %w", err))
	}
	if err := ValidatePort(cfg.Discovery.DefaultPort); err != nil {
		errs = append(errs, fmt.Errorf("discovery.default_port: %w", err))
	}
	if err := ValidatePort(cfg.Discovery.FallbackStart); err != nil {
		errs = append(errs, fmt.Errorf("discovery.fallback_start: %w", err))
	}
	if cfg.Discovery.FallbackStart > cfg.Discovery.DefaultPort {
		errs = append(errs, fmt.Errorf("discovery.fallback_start (%d) must not exceed default_port (%d)",
			cfg.Discovery.FallbackStart, cfg.Discovery.DefaultPort))
	}
	if cfg.Discovery.LANOctets < 0 || cfg.Discovery.LANOctets > 254 {
		errs = append(errs, fmt.Errorf("discovery.lan_octets must be within 0..254, got %d", cfg.Discovery.LANOctets))
	}
	for _, p := range cfg.Discovery.LANPrefixes {
		if !strings.HasSuffix(p, ".") {
			errs = append(errs, fmt.Errorf("discovery.lan_prefixes: %q must end with '.'", p))
		}
	}
	if strings.TrimSpace(cfg.Discovery.Signature) == "" {
		errs = append(errs, errors.New("discovery.signature must not be empty"))
	}

	for name, raw := range map[string]string{
		"discovery.scan_timeout":  cfg.Discovery.ScanTimeout,
		"discovery.test_timeout":  cfg.Discovery.TestTimeout,
		"reconnect.initial_delay": cfg.Reconnect.InitialDelay,
		"reconnect.max_delay":     cfg.Reconnect.MaxDelay,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q: %w", name, raw, err))
			continue
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when nats.enabled is true"))
	}
	return errors.Join(errs...)
}

// ValidatePort reports whether p is a usable TCP port.
func ValidatePort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("port must be within 1..65535, got %d", p)
	}
	return nil
}
