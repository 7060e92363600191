package common

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FilterRules holds the tunable word and pattern lists used by the fetch
// middleware and the content pipeline. Every list has a built-in default;
// a YAML rules file replaces lists wholesale when present.
type FilterRules struct {
	// Substrings that mark a response body as a bot wall or block page
	BlockedContentPatterns []string `yaml:"blocked_content_patterns"`
	// Domains whose pages and emails are always rejected
	SpamDomains []string `yaml:"spam_domains"`
	// URL path substrings that mark a page as low value
	SpamURLPatterns []string `yaml:"spam_url_patterns"`
	// Title prefixes that mark placeholder or test pages
	SpamTitlePrefixes []string `yaml:"spam_title_prefixes"`
	// Words that indicate commercial content
	BusinessKeywords []string `yaml:"business_keywords"`
	// Words that indicate contact information nearby
	ContactKeywords []string `yaml:"contact_keywords"`
	// Local-part words that mark throwaway or spammy addresses
	EmailSpamWords []string `yaml:"email_spam_words"`
	// Browser user agents for rotation, most common first
	UserAgents []WeightedUserAgent `yaml:"user_agents"`
}

// WeightedUserAgent pairs a user agent string with its rotation weight
type WeightedUserAgent struct {
	Agent  string  `yaml:"agent"`
	Weight float64 `yaml:"weight"`
}

// DefaultFilterRules returns the built-in rule set
func DefaultFilterRules() *FilterRules {
	return &FilterRules{
		BlockedContentPatterns: []string{
			"captcha",
			"blocked",
			"access denied",
			"forbidden",
			"rate limit",
			"too many requests",
			"temporarily unavailable",
			"service unavailable",
		},
		SpamDomains: []string{
			"example.com",
			"test.com",
			"localhost",
			"tempmail.org",
			"10minutemail.com",
			"guerrillamail.com",
			"mailinator.com",
			"throwaway.email",
		},
		SpamURLPatterns: []string{
			"/spam/",
			"/test/",
			"/admin/",
			"/login/",
			"/register/",
			"/captcha/",
			"/robot",
		},
		SpamTitlePrefixes: []string{
			"test",
			"demo",
			"sample",
			"untitled",
			"no title",
			"home",
			"index",
			"page",
			"welcome",
			"default",
		},
		BusinessKeywords: []string{
			"services", "products", "company", "business", "solutions",
			"consulting", "agency", "enterprise", "professional", "commercial",
			"servicios", "productos", "empresa", "negocio", "soluciones",
		},
		ContactKeywords: []string{
			"contact", "phone", "address", "email", "reach us", "get in touch",
			"contacto", "telefono", "direccion", "correo",
		},
		EmailSpamWords: []string{
			"temp", "spam", "fake", "test", "example", "sample",
			"admin", "root", "noreply", "do-not-reply", "no-reply",
			"system", "mailer", "daemon", "postmaster", "abuse",
			"webmaster", "hostmaster", "info", "support",
		},
		UserAgents: []WeightedUserAgent{
			{Agent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", Weight: 0.40},
			{Agent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", Weight: 0.30},
			{Agent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", Weight: 0.15},
			{Agent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15", Weight: 0.10},
			{Agent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", Weight: 0.05},
		},
	}
}

// LoadFilterRules loads rules from a YAML file, falling back to defaults
// for any list the file leaves empty. An empty path returns the defaults.
func LoadFilterRules(path string) (*FilterRules, error) {
	rules := DefaultFilterRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	loaded := &FilterRules{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if len(loaded.BlockedContentPatterns) > 0 {
		rules.BlockedContentPatterns = loaded.BlockedContentPatterns
	}
	if len(loaded.SpamDomains) > 0 {
		rules.SpamDomains = loaded.SpamDomains
	}
	if len(loaded.SpamURLPatterns) > 0 {
		rules.SpamURLPatterns = loaded.SpamURLPatterns
	}
	if len(loaded.SpamTitlePrefixes) > 0 {
		rules.SpamTitlePrefixes = loaded.SpamTitlePrefixes
	}
	if len(loaded.BusinessKeywords) > 0 {
		rules.BusinessKeywords = loaded.BusinessKeywords
	}
	if len(loaded.ContactKeywords) > 0 {
		rules.ContactKeywords = loaded.ContactKeywords
	}
	if len(loaded.EmailSpamWords) > 0 {
		rules.EmailSpamWords = loaded.EmailSpamWords
	}
	if len(loaded.UserAgents) > 0 {
		rules.UserAgents = loaded.UserAgents
	}

	return rules, nil
}
