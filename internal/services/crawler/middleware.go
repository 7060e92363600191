package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
)

// RequestMiddleware mutates an outgoing request before it is sent.
// Middlewares run in registration order and must never overwrite headers
// the caller already set.
type RequestMiddleware interface {
	Name() string
	Prepare(req *http.Request) error
}

// UserAgentMiddleware assigns a rotated user agent to requests
type UserAgentMiddleware struct {
	rotator *UserAgentRotator
}

func NewUserAgentMiddleware(rotator *UserAgentRotator) *UserAgentMiddleware {
	return &UserAgentMiddleware{rotator: rotator}
}

func (m *UserAgentMiddleware) Name() string { return "user_agent" }

func (m *UserAgentMiddleware) Prepare(req *http.Request) error {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", m.rotator.Next(req.URL.Host))
	}
	return nil
}

// BrowserHeadersMiddleware adds browser-plausible default headers.
// Accept-Encoding is left to the transport so gzip stays transparent.
type BrowserHeadersMiddleware struct{}

func NewBrowserHeadersMiddleware() *BrowserHeadersMiddleware {
	return &BrowserHeadersMiddleware{}
}

func (m *BrowserHeadersMiddleware) Name() string { return "browser_headers" }

func (m *BrowserHeadersMiddleware) Prepare(req *http.Request) error {
	defaults := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9,es;q=0.8",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
	for name, value := range defaults {
		if req.Header.Get(name) == "" {
			req.Header.Set(name, value)
		}
	}
	return nil
}

// Fetcher performs rate-limited HTTP fetches through the middleware chain
// with retry on transient failures
type Fetcher struct {
	client      *http.Client
	middlewares []RequestMiddleware
	retry       *RetryPolicy
	rateLimiter *RateLimiter
	rules       *common.FilterRules
	maxBodySize int
	logger      arbor.ILogger
}

// NewFetcher creates a fetcher with the given middleware chain
func NewFetcher(config common.CrawlerConfig, rateLimiter *RateLimiter, rules *common.FilterRules, middlewares []RequestMiddleware, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: config.RequestTimeout.Std(),
		},
		middlewares: middlewares,
		retry:       NewRetryPolicy(config.MaxRetries, config.RetryBackoffBase),
		rateLimiter: rateLimiter,
		rules:       rules,
		maxBodySize: config.MaxBodySize,
		logger:      logger,
	}
}

// Fetch retrieves a URL, waiting on the domain rate limit first. Hostile
// responses are reported back to the rate limiter so the domain gets a
// block window.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := f.rateLimiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}
	defer f.rateLimiter.Release(rawURL)

	var result *FetchResult
	statusCode, err := f.retry.ExecuteWithRetry(ctx, f.logger, func() (int, error) {
		res, reqErr := f.doRequest(ctx, rawURL)
		if reqErr != nil {
			return 0, reqErr
		}
		result = res
		return res.StatusCode, nil
	})

	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", rawURL, err)
	}

	if result == nil {
		return nil, fmt.Errorf("fetch failed for %s: no response (status %d)", rawURL, statusCode)
	}

	if result.StatusCode == 403 || result.StatusCode == 429 || result.Blocked {
		f.rateLimiter.ReportResponse(rawURL, result.StatusCode, result.Blocked)
	}

	return result, nil
}

// doRequest performs one HTTP round trip through the middleware chain
func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for _, mw := range f.middlewares {
		if err := mw.Prepare(req); err != nil {
			return nil, fmt.Errorf("middleware %s failed: %w", mw.Name(), err)
		}
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBodySize)))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &FetchResult{
		URL:          rawURL,
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
		ResponseTime: time.Since(start),
		UserAgent:    req.Header.Get("User-Agent"),
		Blocked:      f.isBlockedContent(resp.StatusCode, body),
	}

	f.logger.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Str("elapsed", result.ResponseTime.String()).
		Msg("Fetched URL")

	return result, nil
}

// isBlockedContent scans a successful response body for bot wall markers
func (f *Fetcher) isBlockedContent(statusCode int, body []byte) bool {
	if statusCode >= 400 || len(body) == 0 {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, pattern := range f.rules.BlockedContentPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
