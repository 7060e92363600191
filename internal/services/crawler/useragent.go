package crawler

import (
	"math/rand"
	"sync"

	"github.com/ternarybob/venator/internal/common"
)

// Rotation strategies
const (
	StrategyRandom   = "random"
	StrategySticky   = "sticky"
	StrategyWeighted = "weighted"
	StrategyAdaptive = "adaptive"
)

// minRequestsPerAgent is how many requests the adaptive strategy sends
// with one agent before moving to the next
const minRequestsPerAgent = 5

// UserAgentRotator selects browser user agents per request. The sticky
// strategy keeps one agent per domain, weighted follows the configured
// distribution, and adaptive cycles agents after a fixed request count.
type UserAgentRotator struct {
	agents   []common.WeightedUserAgent
	strategy string
	fallback string

	mu            sync.Mutex
	rng           *rand.Rand
	stickyAgents  map[string]string
	adaptiveIndex int
	adaptiveCount int
}

// NewUserAgentRotator creates a rotator. A nil rng seeds from the default
// source; tests pass a seeded one for deterministic selection.
func NewUserAgentRotator(strategy string, agents []common.WeightedUserAgent, fallback string, rng *rand.Rand) *UserAgentRotator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &UserAgentRotator{
		agents:       agents,
		strategy:     strategy,
		fallback:     fallback,
		rng:          rng,
		stickyAgents: make(map[string]string),
	}
}

// Next returns the user agent to use for a request to the given domain
func (r *UserAgentRotator) Next(domain string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.agents) == 0 {
		return r.fallback
	}

	switch r.strategy {
	case StrategySticky:
		if agent, ok := r.stickyAgents[domain]; ok {
			return agent
		}
		agent := r.agents[r.rng.Intn(len(r.agents))].Agent
		r.stickyAgents[domain] = agent
		return agent

	case StrategyWeighted:
		return r.pickWeighted()

	case StrategyAdaptive:
		if r.adaptiveCount >= minRequestsPerAgent {
			r.adaptiveIndex = (r.adaptiveIndex + 1) % len(r.agents)
			r.adaptiveCount = 0
		}
		r.adaptiveCount++
		return r.agents[r.adaptiveIndex].Agent

	default: // random
		return r.agents[r.rng.Intn(len(r.agents))].Agent
	}
}

// pickWeighted samples an agent according to configured weights.
// Caller holds r.mu.
func (r *UserAgentRotator) pickWeighted() string {
	var total float64
	for _, a := range r.agents {
		total += a.Weight
	}
	if total <= 0 {
		return r.agents[r.rng.Intn(len(r.agents))].Agent
	}

	target := r.rng.Float64() * total
	for _, a := range r.agents {
		target -= a.Weight
		if target <= 0 {
			return a.Agent
		}
	}
	return r.agents[len(r.agents)-1].Agent
}
