package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

var (
	digitRunRegex = regexp.MustCompile(`[0-9]{3,}`)

	freemailDomains = map[string]bool{
		"gmail.com":   true,
		"yahoo.com":   true,
		"hotmail.com": true,
		"outlook.com": true,
		"aol.com":     true,
		"icloud.com":  true,
	}

	roleAccounts = map[string]bool{
		"info": true, "contact": true, "support": true, "sales": true,
		"admin": true, "hello": true, "hi": true, "team": true,
		"help": true, "service": true, "business": true,
		"inquiry": true, "feedback": true,
	}
)

// QualityStage enforces page and email quality floors: spam domains and
// URL patterns, the minimum page quality score, per-email composite
// quality, and the accepted email count window.
type QualityStage struct {
	config common.PipelineConfig
	rules  *common.FilterRules
}

func NewQualityStage(config common.PipelineConfig, rules *common.FilterRules) *QualityStage {
	return &QualityStage{config: config, rules: rules}
}

func (s *QualityStage) Name() string { return "quality" }

func (s *QualityStage) Process(ctx context.Context, page *models.PageData) Result {
	domain := strings.ToLower(page.Domain)
	for _, spam := range s.rules.SpamDomains {
		if domain == spam || strings.HasSuffix(domain, "."+spam) {
			return Reject("spam domain: " + spam)
		}
	}

	lowerURL := strings.ToLower(page.URL)
	for _, pattern := range s.rules.SpamURLPatterns {
		if strings.Contains(lowerURL, pattern) {
			return Reject("spam url pattern: " + pattern)
		}
	}

	if page.QualityScore < s.config.MinQualityScore {
		return Reject(fmt.Sprintf("quality score %.1f below %.1f", page.QualityScore, s.config.MinQualityScore))
	}

	// Count bounds apply to the emails as extracted, before any
	// per-email filtering
	rawCount := len(page.Emails)
	if rawCount < s.config.MinEmails {
		return Reject(fmt.Sprintf("only %d emails, need at least %d", rawCount, s.config.MinEmails))
	}
	if rawCount > s.config.MaxEmails {
		return Reject(fmt.Sprintf("%d emails exceeds cap %d", rawCount, s.config.MaxEmails))
	}

	// Classify and score each email, keeping only those above the floor
	kept := page.Emails[:0]
	for _, email := range page.Emails {
		if s.isSpamEmail(email.Address) {
			continue
		}
		quality := s.emailQuality(email.Address)
		if quality < s.config.MinEmailQuality {
			continue
		}
		email.Type = classifyEmail(email.Address)
		email.Quality = int(quality * 100)
		kept = append(kept, email)
	}
	page.Emails = kept

	if rawCount > 0 && len(page.Emails) == 0 {
		return Reject("no quality emails")
	}

	return Accept()
}

// isSpamEmail drops malformed addresses and addresses on spam domains
func (s *QualityStage) isSpamEmail(address string) bool {
	_, domain, ok := splitEmail(address)
	if !ok {
		return true
	}
	for _, spam := range s.rules.SpamDomains {
		if domain == spam || strings.HasSuffix(domain, "."+spam) {
			return true
		}
	}
	return false
}

// emailQuality computes a composite score in [0,1]. Weights: plausible
// name 0.3, non-freemail domain 0.4, no long digit runs 0.1, no
// underscores 0.1, sensible length 0.1. Each spam word found anywhere
// in the address costs 0.5, so role and throwaway accounts like admin@
// or test@ land below the quality floor.
func (s *QualityStage) emailQuality(address string) float64 {
	local, domain, ok := splitEmail(address)
	if !ok {
		return 0
	}

	score := 0.0

	letters := 0
	for _, r := range local {
		if r >= 'a' && r <= 'z' {
			letters++
		}
	}
	if letters >= 3 {
		score += 0.3
	}

	if !freemailDomains[domain] {
		score += 0.4
	}

	if !digitRunRegex.MatchString(local) {
		score += 0.1
	}
	if !strings.Contains(local, "_") {
		score += 0.1
	}
	if len(address) >= 5 && len(address) <= 100 {
		score += 0.1
	}

	full := strings.ToLower(address)
	for _, word := range s.rules.EmailSpamWords {
		if strings.Contains(full, word) {
			score -= 0.5
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// classifyEmail buckets an address as noreply, business, personal, or unknown
func classifyEmail(address string) string {
	local, domain, ok := splitEmail(address)
	if !ok {
		return models.EmailTypeUnknown
	}

	compactLocal := strings.ReplaceAll(strings.ReplaceAll(local, "-", ""), ".", "")
	if strings.Contains(compactLocal, "noreply") || strings.Contains(compactLocal, "donotreply") {
		return models.EmailTypeNoReply
	}
	if roleAccounts[local] {
		return models.EmailTypeBusiness
	}
	if freemailDomains[domain] {
		return models.EmailTypePersonal
	}
	return models.EmailTypeBusiness
}

// splitEmail separates and lowercases the local part and domain
func splitEmail(address string) (local, domain string, ok bool) {
	parts := strings.Split(strings.ToLower(address), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
