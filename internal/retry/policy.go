package retry

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
)

// Policy computes the delay before the next automatic reconnect attempt.
// It is immutable after construction.
type Policy struct {
	Mode    config.RetryBackoffMode // fixed|linear|exponential
	Initial time.Duration           // delay before the first reconnect
	Max     time.Duration           // cap for growth
}

// DefaultPolicy waits a fixed 30s between reconnect attempts.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffFixed, Initial: config.DefaultReconnectDelay, Max: config.DefaultReconnectDelay}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration) Policy {
	p := DefaultPolicy()
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	return p
}

// FromConfig builds the policy described by the reconnect section.
func FromConfig(c config.ReconnectConfig) Policy {
	return NewPolicy(c.Backoff, c.InitialDelayDuration(), c.MaxDelayDuration())
}

// Delay returns the delay before reconnect attempt n (1-based). Attempts
// reset to 1 after every successful connection.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		if attempt > 32 {
			return p.Max
		}
		d := p.Initial * (1 << (attempt - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default:
		d := time.Duration(attempt) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if the policy cannot be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max < p.Initial {
		return fmt.Errorf("max must be >= initial")
	}
	return nil
}
