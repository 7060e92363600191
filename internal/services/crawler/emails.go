package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/venator/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Obfuscated forms: user [at] domain.com, user (at) domain.com, user @ domain.com
	obfuscatedRegex = regexp.MustCompile(`(?i)([A-Za-z0-9._%+-]+)\s*(?:\[at\]|\(at\)|\sat\s|\s@\s)\s*([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)

	// Labeled addresses: "email: user@domain.com", including Spanish variants
	prefixedRegex = regexp.MustCompile(`(?i)(?:e-?mail|correo|contacto?)\s*:?\s*([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`)

	// Common role accounts, caught even when embedded in noisy markup
	roleRegex = regexp.MustCompile(`(?i)\b(?:info|contact|support|sales|admin|hello|hi|team|help|service|business|inquiry|feedback)@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	htmlCommentRegex = regexp.MustCompile(`(?s)<!--(.*?)-->`)
)

// EmailExtractor harvests email addresses from HTML using layered passes.
// Earlier layers win when the same address appears in several places.
type EmailExtractor struct{}

func NewEmailExtractor() *EmailExtractor {
	return &EmailExtractor{}
}

// Extract returns all valid, deduplicated addresses found in a page
func (e *EmailExtractor) Extract(doc *goquery.Document, rawHTML string) []models.ExtractedEmail {
	seen := make(map[string]bool)
	var emails []models.ExtractedEmail

	add := func(address, source string) {
		address = strings.ToLower(strings.TrimSpace(strings.Trim(address, ".,;:")))
		if address == "" || seen[address] || !IsValidEmailFormat(address) {
			return
		}
		seen[address] = true
		emails = append(emails, models.ExtractedEmail{Address: address, Source: source})
	}

	// Plain addresses anywhere in the markup
	for _, match := range emailRegex.FindAllString(rawHTML, -1) {
		add(match, models.EmailSourcePlain)
	}

	// mailto: links, stripping query parameters like ?subject=
	doc.Find(`a[href^="mailto:"]`).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if idx := strings.Index(addr, "?"); idx >= 0 {
			addr = addr[:idx]
		}
		add(addr, models.EmailSourceMailto)
	})

	// Labeled addresses ("email: ...", "correo: ...")
	for _, match := range prefixedRegex.FindAllStringSubmatch(doc.Text(), -1) {
		add(match[1], models.EmailSourcePrefixed)
	}

	// Role accounts
	for _, match := range roleRegex.FindAllString(rawHTML, -1) {
		add(match, models.EmailSourcePlain)
	}

	// De-obfuscated forms
	for _, match := range obfuscatedRegex.FindAllStringSubmatch(doc.Text(), -1) {
		add(match[1]+"@"+match[2], models.EmailSourceObfuscated)
	}

	// Form input values and placeholders
	doc.Find("input[value], input[placeholder]").Each(func(i int, s *goquery.Selection) {
		for _, attr := range []string{"value", "placeholder"} {
			if v, ok := s.Attr(attr); ok {
				for _, match := range emailRegex.FindAllString(v, -1) {
					add(match, models.EmailSourceForm)
				}
			}
		}
	})

	// HTML comments
	for _, comment := range htmlCommentRegex.FindAllStringSubmatch(rawHTML, -1) {
		for _, match := range emailRegex.FindAllString(comment[1], -1) {
			add(match, models.EmailSourceComment)
		}
	}

	// Meta tag content
	doc.Find("meta[content]").Each(func(i int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		for _, match := range emailRegex.FindAllString(content, -1) {
			add(match, models.EmailSourceMeta)
		}
	})

	return emails
}

// IsValidEmailFormat applies basic structural validation: one @, non-empty
// local part up to 64 chars, dotted domain with a 2+ letter TLD, and a
// total length within the 254 char limit.
func IsValidEmailFormat(address string) bool {
	if len(address) == 0 || len(address) > 254 {
		return false
	}

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return false
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	tld := domain[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}

	return true
}
