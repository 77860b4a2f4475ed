package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
)

func discoveryConfig() config.DiscoveryConfig {
	return config.Default().Discovery
}

func TestBuildCandidatesDefaults(t *testing.T) {
	c := BuildCandidates("localhost", 3035, discoveryConfig())

	require.Len(t, c.Hosts, 22)
	assert.Equal(t, []string{"localhost", "127.0.0.1", "192.168.0.1"}, c.Hosts[:3])
	assert.Equal(t, "10.0.1.5", c.Hosts[21])
	assert.Equal(t, []int{3035, 3026, 3027, 3028, 3029, 3030, 3031, 3032, 3033, 3034}, c.Ports)
}

func TestBuildCandidatesConfiguredPortFirst(t *testing.T) {
	c := BuildCandidates("localhost", 9999, discoveryConfig())
	assert.Equal(t, []int{9999, 3035, 3026, 3027, 3028, 3029, 3030, 3031, 3032, 3033, 3034}, c.Ports)

	c = BuildCandidates("localhost", 3030, discoveryConfig())
	assert.Equal(t, []int{3030, 3035, 3026, 3027, 3028, 3029, 3031, 3032, 3033, 3034}, c.Ports)
}

func TestBuildCandidatesSkipsPlaceholderHost(t *testing.T) {
	for _, h := range []string{"", "0.0.0.0", "::", "*"} {
		c := BuildCandidates(h, 3035, discoveryConfig())
		assert.Equal(t, "localhost", c.Hosts[0], "host %q", h)
		assert.Len(t, c.Hosts, 22)
	}
}

func TestBuildCandidatesDeduplicatesConfiguredLANHost(t *testing.T) {
	c := BuildCandidates("192.168.1.4", 3035, discoveryConfig())
	assert.Equal(t, "192.168.1.4", c.Hosts[0])
	assert.Len(t, c.Hosts, 22)

	seen := map[string]int{}
	for _, h := range c.Hosts {
		seen[h]++
	}
	assert.Equal(t, 1, seen["192.168.1.4"])
}

func TestBuildPlanPhases(t *testing.T) {
	cfg := discoveryConfig()
	c := BuildCandidates("192.168.1.4", 3035, cfg)
	plan := BuildPlan(c, func(h string) bool { return IsLocalHost(h, cfg) })

	assert.Equal(t, []Target{
		{"192.168.1.4", 3035}, {"192.168.1.4", 3026},
		{"localhost", 3035}, {"localhost", 3026},
	}, plan.Phase1)

	assert.Equal(t, len(c.Hosts)*len(c.Ports), plan.Len(), "every pair exactly once")

	// Local hosts come first in phase 2, starting with what phase 1 left out.
	assert.Equal(t, Target{"localhost", 3027}, plan.Phase2[0])
	localCount := 2*len(c.Ports) - 2
	for i, tgt := range plan.Phase2 {
		if i < localCount {
			assert.True(t, IsLocalHost(tgt.Host, cfg), "target %d (%s) should be local", i, tgt)
		} else {
			assert.False(t, IsLocalHost(tgt.Host, cfg), "target %d (%s) should not be local", i, tgt)
		}
	}
	assert.Equal(t, Target{"192.168.1.4", 3027}, plan.Phase2[localCount])

	seen := map[Target]bool{}
	for _, tgt := range append(append([]Target{}, plan.Phase1...), plan.Phase2...) {
		assert.False(t, seen[tgt], "duplicate %s", tgt)
		seen[tgt] = true
	}
}

func TestBuildPlanSmallCandidateSets(t *testing.T) {
	plan := BuildPlan(Candidates{Hosts: []string{"localhost"}, Ports: []int{3035}}, func(string) bool { return true })
	assert.Equal(t, []Target{{"localhost", 3035}}, plan.Phase1)
	assert.Empty(t, plan.Phase2)
}
