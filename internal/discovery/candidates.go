package discovery

import (
	"strconv"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
)

// Target is one host/port pair to probe.
type Target struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (t Target) String() string {
	return t.Host + ":" + strconv.Itoa(t.Port)
}

// Candidates are the ordered, deduplicated hosts and ports of one session.
type Candidates struct {
	Hosts []string
	Ports []int
}

// Plan is the probe order of one session.
type Plan struct {
	// Phase1 covers the first two hosts with the first two ports.
	Phase1 []Target
	// Phase2 covers local hosts first, then everything else, across all
	// ports. Pairs already in Phase1 are left out.
	Phase2 []Target
}

// Len is the number of probes a session issues when nothing matches.
func (p Plan) Len() int { return len(p.Phase1) + len(p.Phase2) }

var placeholderHosts = map[string]struct{}{
	"":        {},
	"0.0.0.0": {},
	"::":      {},
	"*":       {},
}

// BuildCandidates derives hosts and ports from the configured server.
func BuildCandidates(host string, port int, cfg config.DiscoveryConfig) Candidates {
	var c Candidates

	seenHost := make(map[string]struct{})
	addHost := func(h string) {
		if _, ok := seenHost[h]; ok {
			return
		}
		seenHost[h] = struct{}{}
		c.Hosts = append(c.Hosts, h)
	}
	if _, placeholder := placeholderHosts[host]; !placeholder {
		addHost(host)
	}
	for _, h := range cfg.LocalHosts {
		addHost(h)
	}
	for _, prefix := range cfg.LANPrefixes {
		for octet := 1; octet <= cfg.LANOctets; octet++ {
			addHost(prefix + strconv.Itoa(octet))
		}
	}

	seenPort := make(map[int]struct{})
	addPort := func(p int) {
		if config.ValidatePort(p) != nil {
			return
		}
		if _, ok := seenPort[p]; ok {
			return
		}
		seenPort[p] = struct{}{}
		c.Ports = append(c.Ports, p)
	}
	addPort(port)
	addPort(cfg.DefaultPort)
	for p := cfg.FallbackStart; p <= cfg.DefaultPort; p++ {
		addPort(p)
	}
	return c
}

// IsLocalHost reports whether h is a loopback name or one of the configured local hosts.
func IsLocalHost(h string, cfg config.DiscoveryConfig) bool {
	switch h {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	for _, l := range cfg.LocalHosts {
		if l == h {
			return true
		}
	}
	return false
}

// BuildPlan orders the probes of a session.
func BuildPlan(c Candidates, isLocal func(string) bool) Plan {
	var p Plan
	planned := make(map[Target]struct{})
	add := func(dst *[]Target, t Target) {
		if _, ok := planned[t]; ok {
			return
		}
		planned[t] = struct{}{}
		*dst = append(*dst, t)
	}

	for _, h := range firstN(c.Hosts, 2) {
		for _, port := range firstN(c.Ports, 2) {
			add(&p.Phase1, Target{Host: h, Port: port})
		}
	}

	for _, local := range []bool{true, false} {
		for _, h := range c.Hosts {
			if isLocal(h) != local {
				continue
			}
			for _, port := range c.Ports {
				add(&p.Phase2, Target{Host: h, Port: port})
			}
		}
	}
	return p
}

func firstN[T any](s []T, n int) []T {
	if len(s) < n {
		return s
	}
	return s[:n]
}
