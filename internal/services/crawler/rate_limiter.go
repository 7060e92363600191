package crawler

import (
	"context"
	"math"
	"math/rand"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/venator/internal/common"
)

// RateLimiter implements per-domain politeness with adaptive delays,
// session budgets, and block windows for hostile responses.
type RateLimiter struct {
	config  common.RateLimitConfig
	logger  arbor.ILogger
	domains map[string]*domainState
	mu      sync.RWMutex

	// Session-wide smoothing and budget
	sessionLimiter *rate.Limiter
	sessionCount   int
	sessionStart   time.Time
	sessionMu      sync.Mutex

	rng   *rand.Rand
	rngMu sync.Mutex
}

// domainState tracks rate limiting for a single domain
type domainState struct {
	mu           sync.Mutex
	requestCount int
	lastRequest  time.Time
	// nextAllowedAt is the reserved admission time for the next request.
	// Reserving under mu keeps concurrent waiters from sharing a slot in
	// the request cadence.
	nextAllowedAt time.Time
	blockedUntil  time.Time
	baseDelay     time.Duration
	slots         chan struct{} // Per-domain concurrency semaphore
}

// NewRateLimiter creates a rate limiter from configuration
func NewRateLimiter(config common.RateLimitConfig, logger arbor.ILogger) *RateLimiter {
	perSecond := float64(config.MaxRequestsPerSession) / config.SessionTimeout.Std().Seconds()
	return &RateLimiter{
		config:         config,
		logger:         logger,
		domains:        make(map[string]*domainState),
		sessionLimiter: rate.NewLimiter(rate.Limit(perSecond), config.DomainConcurrency*2),
		sessionStart:   time.Now(),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until a request to rawURL is allowed, or returns an error
// when the domain is blocked or a budget is exhausted. Callers must pair
// a successful Wait with Release once the request finishes.
func (rl *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	domain := extractDomain(rawURL)
	if domain == "" {
		return nil
	}

	if err := rl.checkSessionBudget(); err != nil {
		return err
	}

	state := rl.domainFor(domain)

	state.mu.Lock()
	now := time.Now()
	if now.Before(state.blockedUntil) {
		until := state.blockedUntil
		state.mu.Unlock()
		rl.logger.Debug().
			Str("domain", domain).
			Str("blocked_until", until.Format(time.RFC3339)).
			Msg("Domain inside block window")
		return ErrDomainBlocked
	}
	if state.requestCount >= rl.config.MaxRequestsPerDomain {
		state.mu.Unlock()
		return ErrDomainBudget
	}

	// Reserve this request's admission time and push nextAllowedAt
	// forward before sleeping, so the inter-request gap holds even when
	// several workers wait on the same domain at once
	gap := rl.requestGap(state)
	admitAt := now
	if state.nextAllowedAt.After(now) {
		admitAt = state.nextAllowedAt
	}
	state.nextAllowedAt = admitAt.Add(gap)
	state.requestCount++
	state.lastRequest = admitAt
	state.mu.Unlock()

	// Session-wide smoothing across all domains
	if err := rl.sessionLimiter.Wait(ctx); err != nil {
		rl.unreserve(state)
		return err
	}

	// Acquire per-domain concurrency slot
	select {
	case state.slots <- struct{}{}:
	case <-ctx.Done():
		rl.unreserve(state)
		return ctx.Err()
	}

	if wait := time.Until(admitAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			<-state.slots
			rl.unreserve(state)
			return ctx.Err()
		case <-timer.C:
		}
	}

	rl.sessionMu.Lock()
	rl.sessionCount++
	rl.sessionMu.Unlock()

	return nil
}

// unreserve returns a reserved request to the domain budget after a
// cancelled wait
func (rl *RateLimiter) unreserve(state *domainState) {
	state.mu.Lock()
	if state.requestCount > 0 {
		state.requestCount--
	}
	state.mu.Unlock()
}

// Release frees the concurrency slot acquired by Wait
func (rl *RateLimiter) Release(rawURL string) {
	domain := extractDomain(rawURL)
	if domain == "" {
		return
	}
	rl.mu.RLock()
	state, exists := rl.domains[domain]
	rl.mu.RUnlock()
	if !exists {
		return
	}
	select {
	case <-state.slots:
	default:
	}
}

// ReportResponse records a hostile response and opens a block window
// for the domain when warranted. blockedContent marks a body that
// matched a bot wall pattern regardless of status code.
func (rl *RateLimiter) ReportResponse(rawURL string, statusCode int, blockedContent bool) {
	domain := extractDomain(rawURL)
	if domain == "" {
		return
	}

	var pause time.Duration
	var reason string
	switch {
	case statusCode == 403:
		pause = rl.config.ForbiddenPause.Std()
		reason = "http_403"
	case statusCode == 429:
		pause = rl.config.RateLimitPause.Std()
		reason = "http_429"
	case blockedContent:
		pause = rl.config.BlockedContentPause.Std()
		reason = "blocked_content"
	default:
		return
	}

	state := rl.domainFor(domain)
	state.mu.Lock()
	state.blockedUntil = time.Now().Add(pause)
	state.mu.Unlock()

	rl.logger.Warn().
		Str("domain", domain).
		Str("reason", reason).
		Str("pause", pause.String()).
		Msg("Domain blocked after hostile response")
}

// requestGap computes the spacing between consecutive requests to a
// domain. The gap grows with request count and gets an exponential
// backoff factor once the domain has seen more than ten requests.
// Caller holds state.mu.
func (rl *RateLimiter) requestGap(state *domainState) time.Duration {
	base := state.baseDelay
	if base <= 0 {
		base = rl.config.BaseDelay.Std()
	}

	// Adaptive growth: 5% per request already made
	adaptive := float64(base) * (1.0 + 0.05*float64(state.requestCount))

	// Exponential backoff for heavily used domains
	if state.requestCount > 10 {
		factor := math.Pow(rl.config.BackoffBase, float64(state.requestCount/10))
		if factor > rl.config.MaxBackoffFactor {
			factor = rl.config.MaxBackoffFactor
		}
		adaptive *= factor
	}

	if max := float64(rl.config.MaxDelay.Std()); adaptive > max {
		adaptive = max
	}

	// Jitter in [0.7, 1.3] to avoid request cadence fingerprinting
	rl.rngMu.Lock()
	jitter := 0.7 + rl.rng.Float64()*0.6
	rl.rngMu.Unlock()
	return time.Duration(adaptive * jitter)
}

// checkSessionBudget enforces the session-wide request cap, resetting
// counters when the session window rolls over
func (rl *RateLimiter) checkSessionBudget() error {
	rl.sessionMu.Lock()
	defer rl.sessionMu.Unlock()

	if time.Since(rl.sessionStart) > rl.config.SessionTimeout.Std() {
		rl.sessionStart = time.Now()
		rl.sessionCount = 0
		rl.resetDomainCounts()
	}

	if rl.sessionCount >= rl.config.MaxRequestsPerSession {
		return ErrSessionBudget
	}
	return nil
}

// resetDomainCounts zeroes per-domain counters at session rollover.
// Caller holds sessionMu.
func (rl *RateLimiter) resetDomainCounts() {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	for _, state := range rl.domains {
		state.mu.Lock()
		state.requestCount = 0
		state.mu.Unlock()
	}
}

// domainFor returns or creates the state for a domain
func (rl *RateLimiter) domainFor(domain string) *domainState {
	rl.mu.RLock()
	state, exists := rl.domains[domain]
	rl.mu.RUnlock()
	if exists {
		return state
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if state, exists = rl.domains[domain]; exists {
		return state
	}

	concurrency := rl.config.DomainConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	state = &domainState{
		slots: make(chan struct{}, concurrency),
	}
	if override, ok := rl.config.DomainDelays[domain]; ok {
		state.baseDelay = override.Std()
	}
	rl.domains[domain] = state
	return state
}

// Snapshot returns the current state of all tracked domains, sorted by name
func (rl *RateLimiter) Snapshot() []DomainSnapshot {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	snapshots := make([]DomainSnapshot, 0, len(rl.domains))
	for domain, state := range rl.domains {
		state.mu.Lock()
		snap := DomainSnapshot{
			Domain:       domain,
			RequestCount: state.requestCount,
			InFlight:     len(state.slots),
		}
		if !state.blockedUntil.IsZero() && time.Now().Before(state.blockedUntil) {
			snap.BlockedUntil = state.blockedUntil
		}
		base := state.baseDelay
		if base <= 0 {
			base = rl.config.BaseDelay.Std()
		}
		snap.CurrentDelay = time.Duration(float64(base) * (1.0 + 0.05*float64(state.requestCount)))
		state.mu.Unlock()
		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Domain < snapshots[j].Domain })
	return snapshots
}

// extractDomain parses the domain from a URL
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
