package crawler

import (
	"container/heap"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// binaryExtensions are file types never worth fetching for HTML extraction
var binaryExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".pdf", ".zip", ".tar", ".gz", ".rar",
	".mp3", ".mp4", ".avi", ".mov", ".doc", ".docx", ".xls", ".xlsx",
	".woff", ".woff2", ".ttf", ".eot", ".xml", ".json", ".rss",
}

// skipPathFragments mark admin and auth URLs that never hold lead content
var skipPathFragments = []string{
	"/wp-admin", "/wp-login", "/login", "/logout", "/signin", "/signup", "/register",
}

// Frontier is a depth-ordered crawl queue with URL normalization and
// dedup. Lower depth pops first, which makes the crawl breadth-first.
// Pop blocks until an entry arrives, the timeout passes, or Close is called.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	entries  entryHeap
	seen     map[string]bool
	allowed  map[string]bool
	maxDepth int
	inflight int
	closed   bool
}

// NewFrontier creates a frontier bounded by maxDepth. allowedDomains
// restricts which hosts may be enqueued; empty means any host.
func NewFrontier(maxDepth int, allowedDomains []string) *Frontier {
	f := &Frontier{
		seen:     make(map[string]bool),
		allowed:  make(map[string]bool, len(allowedDomains)),
		maxDepth: maxDepth,
	}
	f.cond = sync.NewCond(&f.mu)
	for _, domain := range allowedDomains {
		f.allowed[strings.ToLower(domain)] = true
	}
	return f
}

// Push enqueues a URL at the given depth, recording the page it was
// discovered on. Returns false when the URL is filtered out, already
// seen, too deep, or the frontier is closed.
func (f *Frontier) Push(rawURL string, depth int, sourceURL string) bool {
	if depth > f.maxDepth {
		return false
	}

	parsed, ok := crawlableURL(rawURL)
	if !ok {
		return false
	}

	if len(f.allowed) > 0 && !f.allowed[strings.ToLower(parsed.Host)] {
		return false
	}

	normalized := normalizeURL(parsed)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.seen[normalized] {
		return false
	}
	f.seen[normalized] = true

	heap.Push(&f.entries, &FrontierEntry{
		URL:       normalized,
		Depth:     depth,
		SourceURL: sourceURL,
		Priority:  depth,
	})
	f.cond.Signal()
	return true
}

// Pop removes the shallowest queued entry, blocking up to timeout.
// The second return is false on timeout or when the frontier is closed
// and drained. Each successful Pop must be paired with TaskDone.
func (f *Frontier) Pop(timeout time.Duration) (FrontierEntry, bool) {
	deadline := time.Now().Add(timeout)

	f.mu.Lock()
	defer f.mu.Unlock()

	for f.entries.Len() == 0 {
		if f.closed {
			return FrontierEntry{}, false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return FrontierEntry{}, false
		}

		// Wake the cond when the deadline passes so the wait cannot hang
		timer := time.AfterFunc(remaining, func() {
			f.cond.Broadcast()
		})
		f.cond.Wait()
		timer.Stop()
	}

	entry := heap.Pop(&f.entries).(*FrontierEntry)
	f.inflight++
	return *entry, true
}

// TaskDone marks a popped entry as processed
func (f *Frontier) TaskDone() {
	f.mu.Lock()
	if f.inflight > 0 {
		f.inflight--
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

// IsIdle reports whether the queue is empty with no entries in flight
func (f *Frontier) IsIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries.Len() == 0 && f.inflight == 0
}

// Len returns the number of queued entries
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries.Len()
}

// SeenCount returns how many distinct URLs have been enqueued
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// Close wakes all blocked Pop calls and rejects further pushes
func (f *Frontier) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cond.Broadcast()
}

// crawlableURL filters out URLs that cannot hold crawlable HTML content
func crawlableURL(rawURL string) (*url.URL, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false
	}
	if parsed.Host == "" {
		return nil, false
	}
	if len(parsed.Fragment) > 200 || len(parsed.RawQuery) > 500 {
		return nil, false
	}

	path := strings.ToLower(parsed.Path)
	for _, ext := range binaryExtensions {
		if strings.HasSuffix(path, ext) {
			return nil, false
		}
	}
	for _, fragment := range skipPathFragments {
		if strings.Contains(path, fragment) {
			return nil, false
		}
	}

	return parsed, true
}

// normalizeURL produces the canonical dedup form: lowercased scheme and
// host, fragment stripped, query parameters sorted
func normalizeURL(parsed *url.URL) string {
	u := *parsed
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		values := u.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			vs := values[k]
			sort.Strings(vs)
			for _, v := range vs {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	return u.String()
}

// entryHeap implements heap.Interface ordered by Priority (lowest first)
type entryHeap []*FrontierEntry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].Priority < h[j].Priority }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) {
	entry := x.(*FrontierEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
