package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration so config values like "30s" or "10m"
// decode from TOML strings via encoding.TextUnmarshaler.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	RateLimit   RateLimitConfig `toml:"ratelimit"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Rules       RulesConfig     `toml:"rules"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
	GCSchedule     string `toml:"gc_schedule"`      // Cron schedule for value log GC
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// CrawlerConfig contains fetch and crawl behavior settings
type CrawlerConfig struct {
	UserAgent         string   `toml:"user_agent"`          // Fallback user agent when rotation is disabled
	UserAgentStrategy string   `toml:"user_agent_strategy"` // "random", "sticky", "weighted", or "adaptive"
	Workers           int      `toml:"workers"`             // Default worker count per job
	MaxWorkers        int      `toml:"max_workers"`         // Hard cap on per-job concurrency
	RequestTimeout    Duration `toml:"request_timeout"`     // HTTP request timeout
	MaxBodySize       int      `toml:"max_body_size"`       // Maximum response body size in bytes
	MaxDepth          int      `toml:"max_depth"`           // Default maximum crawl depth
	MaxPages          int      `toml:"max_pages"`           // Default maximum pages per job
	MaxRetries        int      `toml:"max_retries"`         // Retry attempts for transient fetch failures
	RetryBackoffBase  float64  `toml:"retry_backoff_base"`  // Exponential backoff base for retries
	StaleJobTimeout   Duration `toml:"stale_job_timeout"`   // Processing jobs idle longer than this are failed
	SweepSchedule     string   `toml:"sweep_schedule"`      // Cron schedule for the stale job sweep
}

// RateLimitConfig contains per-domain politeness settings
type RateLimitConfig struct {
	BaseDelay             Duration            `toml:"base_delay"`               // Starting delay between requests to a domain
	MaxDelay              Duration            `toml:"max_delay"`                // Ceiling for the adaptive delay
	BackoffBase           float64             `toml:"backoff_base"`             // Base for the request-count backoff factor
	MaxBackoffFactor      float64             `toml:"max_backoff_factor"`       // Ceiling for the backoff factor
	MaxRequestsPerDomain  int                 `toml:"max_requests_per_domain"`  // Per-session request budget per domain
	MaxRequestsPerSession int                 `toml:"max_requests_per_session"` // Total request budget per session window
	SessionTimeout        Duration            `toml:"session_timeout"`          // Session window length before counters reset
	DomainConcurrency     int                 `toml:"domain_concurrency"`       // Max in-flight requests per domain
	DomainDelays          map[string]Duration `toml:"domain_delays"`            // Per-domain delay overrides
	BlockedContentPause   Duration            `toml:"blocked_content_pause"`    // Block window after bot-wall content
	RateLimitPause        Duration            `toml:"rate_limit_pause"`         // Block window after HTTP 429
	ForbiddenPause        Duration            `toml:"forbidden_pause"`          // Block window after HTTP 403
}

// PipelineConfig contains content pipeline thresholds
type PipelineConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"` // Fingerprint similarity above which a page is a duplicate
	FingerprintWindow   int     `toml:"fingerprint_window"`   // Recent fingerprints kept for similarity comparison
	MinQualityScore     float64 `toml:"min_quality_score"`    // Minimum page quality score (0-100)
	MinEmails           int     `toml:"min_emails"`           // Minimum emails per accepted page
	MaxEmails           int     `toml:"max_emails"`           // Maximum emails per accepted page
	MinEmailQuality     float64 `toml:"min_email_quality"`    // Per-email composite quality threshold (0-1)
	MinTitleLength      int     `toml:"min_title_length"`
	MaxTitleLength      int     `toml:"max_title_length"`
	MinDescription      int     `toml:"min_description_length"`
	MaxDescription      int     `toml:"max_description_length"`
}

// RulesConfig points at the optional YAML rules file with filter lists
type RulesConfig struct {
	Path string `toml:"path"` // Path to rules YAML (empty = built-in defaults)
}

// NewDefaultConfig creates a configuration with default values.
// Thresholds mirror observed production behavior; override in venator.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data",
				GCSchedule: "*/5 * * * *", // Every 5 minutes
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Crawler: CrawlerConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			UserAgentStrategy: "weighted",
			Workers:           3,
			MaxWorkers:        12,
			RequestTimeout:    Duration(30 * time.Second),
			MaxBodySize:       10 * 1024 * 1024, // 10MB
			MaxDepth:          3,
			MaxPages:          500,
			MaxRetries:        3,
			RetryBackoffBase:  2.0,
			StaleJobTimeout:   Duration(10 * time.Minute),
			SweepSchedule:     "* * * * *", // Every minute
		},
		RateLimit: RateLimitConfig{
			BaseDelay:             Duration(2 * time.Second),
			MaxDelay:              Duration(30 * time.Second),
			BackoffBase:           1.5,
			MaxBackoffFactor:      5.0,
			MaxRequestsPerDomain:  100,
			MaxRequestsPerSession: 1000,
			SessionTimeout:        Duration(time.Hour),
			DomainConcurrency:     3,
			BlockedContentPause:   Duration(5 * time.Minute),
			RateLimitPause:        Duration(10 * time.Minute),
			ForbiddenPause:        Duration(30 * time.Minute),
		},
		Pipeline: PipelineConfig{
			SimilarityThreshold: 0.85,
			FingerprintWindow:   500,
			MinQualityScore:     30,
			MinEmails:           0,
			MaxEmails:           20,
			MinEmailQuality:     0.6,
			MinTitleLength:      10,
			MaxTitleLength:      200,
			MinDescription:      50,
			MaxDescription:      500,
		},
		Rules: RulesConfig{
			Path: "",
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VENATOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("VENATOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VENATOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("VENATOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("VENATOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("VENATOR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if userAgent := os.Getenv("VENATOR_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}
	if strategy := os.Getenv("VENATOR_CRAWLER_UA_STRATEGY"); strategy != "" {
		config.Crawler.UserAgentStrategy = strategy
	}
	if workers := os.Getenv("VENATOR_CRAWLER_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Crawler.Workers = w
		}
	}
	if timeout := os.Getenv("VENATOR_CRAWLER_REQUEST_TIMEOUT"); timeout != "" {
		if rt, err := time.ParseDuration(timeout); err == nil {
			config.Crawler.RequestTimeout = Duration(rt)
		}
	}
	if maxBodySize := os.Getenv("VENATOR_CRAWLER_MAX_BODY_SIZE"); maxBodySize != "" {
		if mbs, err := strconv.Atoi(maxBodySize); err == nil {
			config.Crawler.MaxBodySize = mbs
		}
	}
	if maxDepth := os.Getenv("VENATOR_CRAWLER_MAX_DEPTH"); maxDepth != "" {
		if md, err := strconv.Atoi(maxDepth); err == nil {
			config.Crawler.MaxDepth = md
		}
	}

	if baseDelay := os.Getenv("VENATOR_RATELIMIT_BASE_DELAY"); baseDelay != "" {
		if bd, err := time.ParseDuration(baseDelay); err == nil {
			config.RateLimit.BaseDelay = Duration(bd)
		}
	}
	if maxPerDomain := os.Getenv("VENATOR_RATELIMIT_MAX_PER_DOMAIN"); maxPerDomain != "" {
		if mpd, err := strconv.Atoi(maxPerDomain); err == nil {
			config.RateLimit.MaxRequestsPerDomain = mpd
		}
	}
	if maxPerSession := os.Getenv("VENATOR_RATELIMIT_MAX_PER_SESSION"); maxPerSession != "" {
		if mps, err := strconv.Atoi(maxPerSession); err == nil {
			config.RateLimit.MaxRequestsPerSession = mps
		}
	}

	if threshold := os.Getenv("VENATOR_PIPELINE_SIMILARITY_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Pipeline.SimilarityThreshold = t
		}
	}
	if minQuality := os.Getenv("VENATOR_PIPELINE_MIN_QUALITY"); minQuality != "" {
		if mq, err := strconv.ParseFloat(minQuality, 64); err == nil {
			config.Pipeline.MinQualityScore = mq
		}
	}

	if rulesPath := os.Getenv("VENATOR_RULES_PATH"); rulesPath != "" {
		config.Rules.Path = rulesPath
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// AllowTestURLs returns true if test URLs (localhost, 127.0.0.1) are allowed.
// Test URLs are only allowed in development mode.
func (c *Config) AllowTestURLs() bool {
	return !c.IsProduction()
}
