package pipeline

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"github.com/ternarybob/venator/internal/models"
)

// Stopword sets used for the detection vote. Small on purpose: a page
// needs only a handful of hits to be classified.
var (
	spanishStopwords = []string{
		"el", "la", "los", "las", "de", "del", "que", "y", "en", "un",
		"una", "es", "por", "con", "para", "como", "su", "más",
	}
	englishStopwords = []string{
		"the", "and", "for", "are", "with", "this", "that", "from",
		"your", "have", "was", "were", "will", "has", "been",
	}
)

// LanguageStage detects the page language and rejects pages outside the
// job's allowed set. The html lang attribute wins when present; otherwise
// a stopword vote decides between Spanish and English.
type LanguageStage struct {
	allowed map[string]bool
}

// NewLanguageStage creates the stage. allowedLanguages entries may be any
// BCP 47-ish tag ("en", "en-US", "spa"); they are canonicalized to their
// base language. Empty means every language passes.
func NewLanguageStage(allowedLanguages []string) *LanguageStage {
	allowed := make(map[string]bool, len(allowedLanguages))
	for _, lang := range allowedLanguages {
		allowed[canonicalLang(lang)] = true
	}
	return &LanguageStage{allowed: allowed}
}

func (s *LanguageStage) Name() string { return "language" }

func (s *LanguageStage) Process(ctx context.Context, page *models.PageData) Result {
	page.Language = detectLanguage(page)

	if len(s.allowed) == 0 {
		return Accept()
	}
	// Pages the vote cannot classify are given the benefit of the doubt
	if page.Language == "unknown" {
		return Accept()
	}
	if !s.allowed[page.Language] {
		return Reject("language not allowed: " + page.Language)
	}
	return Accept()
}

// detectLanguage returns the base language code ("en", "es") or "unknown"
func detectLanguage(page *models.PageData) string {
	if page.HTMLLang != "" {
		if lang := canonicalLang(page.HTMLLang); lang != "" {
			return lang
		}
	}

	words := strings.Fields(strings.ToLower(page.Text))
	if len(words) == 0 {
		return "unknown"
	}
	sample := words
	if len(sample) > 500 {
		sample = sample[:500]
	}

	wordSet := make(map[string]int, len(sample))
	for _, w := range sample {
		wordSet[strings.Trim(w, ".,;:!?\"'()")]++
	}

	esVotes, enVotes := 0, 0
	for _, sw := range spanishStopwords {
		esVotes += wordSet[sw]
	}
	for _, sw := range englishStopwords {
		enVotes += wordSet[sw]
	}

	switch {
	case esVotes > enVotes && esVotes >= 3:
		return "es"
	case enVotes > esVotes && enVotes >= 3:
		return "en"
	default:
		return "unknown"
	}
}

// canonicalLang reduces a language tag to its base code, empty on garbage
func canonicalLang(tag string) string {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return ""
	}
	base, _ := parsed.Base()
	return base.String()
}
