package crawler

import (
	"time"
)

// FetchResult holds the raw outcome of a single HTTP fetch
type FetchResult struct {
	URL          string
	StatusCode   int
	ContentType  string
	Body         []byte
	ResponseTime time.Duration
	UserAgent    string
	Blocked      bool // Body matched a block pattern
}

// FrontierEntry is a URL queued for crawling
type FrontierEntry struct {
	URL       string
	Depth     int
	SourceURL string // Page the URL was discovered on; empty for seeds
	Priority  int    // Lower value pops first; set to depth for breadth-first order
	index     int    // Maintained by container/heap
}

// DomainSnapshot is a point-in-time view of a domain's rate limit state
type DomainSnapshot struct {
	Domain       string        `json:"domain"`
	RequestCount int           `json:"request_count"`
	CurrentDelay time.Duration `json:"current_delay"`
	BlockedUntil time.Time     `json:"blocked_until,omitempty"`
	InFlight     int           `json:"in_flight"`
}
