package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/venator/internal/models"
)

// Fingerprint weights. Title similarity dominates, then description,
// shared emails, and finally whether the pages sit on the same domain.
const (
	weightTitle       = 0.4
	weightDescription = 0.3
	weightEmails      = 0.2
	weightDomain      = 0.1
)

// fingerprint is the comparable shape of a page for near-duplicate checks
type fingerprint struct {
	url        string
	domain     string
	titleWords map[string]bool
	descWords  map[string]bool
	emails     map[string]bool
}

// DedupStage drops pages already seen by exact URL or whose weighted
// fingerprint similarity to a recent page crosses the threshold. The
// fingerprint window is bounded so memory stays flat on long crawls.
type DedupStage struct {
	threshold float64
	window    int

	mu           sync.Mutex
	seenURLs     map[string]bool
	fingerprints []fingerprint
}

func NewDedupStage(threshold float64, window int) *DedupStage {
	if window <= 0 {
		window = 500
	}
	return &DedupStage{
		threshold: threshold,
		window:    window,
		seenURLs:  make(map[string]bool),
	}
}

func (s *DedupStage) Name() string { return "dedup" }

func (s *DedupStage) Process(ctx context.Context, page *models.PageData) Result {
	fp := fingerprintOf(page)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seenURLs[fp.url] {
		return Reject("url already processed")
	}

	for i := range s.fingerprints {
		similarity := similarityOf(&fp, &s.fingerprints[i])
		if similarity >= s.threshold {
			return Reject(fmt.Sprintf("near-duplicate of %s (similarity %.2f)", s.fingerprints[i].url, similarity))
		}
	}

	s.seenURLs[fp.url] = true
	s.fingerprints = append(s.fingerprints, fp)
	if len(s.fingerprints) > s.window {
		s.fingerprints = s.fingerprints[len(s.fingerprints)-s.window:]
	}

	return Accept()
}

// fingerprintOf builds the comparable shape of a page
func fingerprintOf(page *models.PageData) fingerprint {
	fp := fingerprint{
		url:        page.URL,
		domain:     strings.ToLower(page.Domain),
		titleWords: wordSet(page.Title),
		descWords:  wordSet(page.Description),
		emails:     make(map[string]bool, len(page.Emails)),
	}
	for _, e := range page.Emails {
		fp.emails[e.Address] = true
	}
	return fp
}

// similarityOf computes the weighted similarity between two fingerprints
func similarityOf(a, b *fingerprint) float64 {
	score := weightTitle*jaccard(a.titleWords, b.titleWords) +
		weightDescription*jaccard(a.descWords, b.descWords) +
		weightEmails*jaccard(a.emails, b.emails)
	if a.domain != "" && a.domain == b.domain {
		score += weightDomain
	}
	return score
}

// jaccard computes set similarity: |intersection| / |union|.
// Two empty sets are identical.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// wordSet lowercases and splits text into a set of words
func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,;:!?\"'()")] = true
	}
	delete(set, "")
	return set
}
