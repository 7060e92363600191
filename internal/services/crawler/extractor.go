package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

// ErrPageInvalid marks responses that cannot yield page data: error
// statuses, non-HTML content, or bodies too small to be a real page
var ErrPageInvalid = errors.New("page not extractable")

// minBodyBytes is the smallest body considered a real page
const minBodyBytes = 100

// Extractor turns fetched HTML into structured page data: metadata,
// same-host links, emails, and content scores.
type Extractor struct {
	emails *EmailExtractor
	rules  *common.FilterRules
	logger arbor.ILogger
}

// NewExtractor creates an extractor using the given filter rules
func NewExtractor(rules *common.FilterRules, logger arbor.ILogger) *Extractor {
	return &Extractor{
		emails: NewEmailExtractor(),
		rules:  rules,
		logger: logger,
	}
}

// Extract validates a fetch result and builds page data from it
func (x *Extractor) Extract(jobID string, entry FrontierEntry, res *FetchResult) (*models.PageData, error) {
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrPageInvalid, res.StatusCode)
	}
	if !isHTMLContentType(res.ContentType) {
		return nil, fmt.Errorf("%w: content type %q", ErrPageInvalid, res.ContentType)
	}
	if len(res.Body) < minBodyBytes {
		return nil, fmt.Errorf("%w: body too small (%d bytes)", ErrPageInvalid, len(res.Body))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	pageURL, err := url.Parse(res.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	page := &models.PageData{
		URL:          res.URL,
		SourceURL:    entry.SourceURL,
		Domain:       pageURL.Host,
		JobID:        jobID,
		Depth:        entry.Depth,
		HTTPStatus:   res.StatusCode,
		ResponseTime: res.ResponseTime.Milliseconds(),
		PageSize:     len(res.Body),
	}

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	page.Description = metaContent(doc, "description")
	page.Keywords = metaContent(doc, "keywords")
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		page.HTMLLang = strings.TrimSpace(lang)
	}

	page.LinkCount = doc.Find("a[href]").Length()
	page.ImageCount = doc.Find("img").Length()
	page.Links = x.extractLinks(doc, pageURL)

	rawHTML := string(res.Body)
	page.Emails = x.emails.Extract(doc, rawHTML)

	// Visible text, with scripts and styles removed. Mutates the document,
	// so this must stay after link and email extraction.
	doc.Find("script, style, noscript").Remove()
	page.Text = normalizeWhitespace(doc.Find("body").Text())
	page.WordCount = len(strings.Fields(page.Text))

	page.ContentType = x.detectContentType(pageURL, page)
	page.ContactScore = x.contactScore(page)
	page.QualityScore = x.qualityScore(page)

	x.logger.Debug().
		Str("url", res.URL).
		Int("links", len(page.Links)).
		Int("emails", len(page.Emails)).
		Int("words", page.WordCount).
		Str("content_type", page.ContentType).
		Msg("Page extracted")

	return page, nil
}

// extractLinks collects deduplicated same-host absolute links from anchors
func (x *Extractor) extractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	linkSet := make(map[string]bool)

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || shouldSkipLink(href) {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		// Only follow links on the same host
		if !strings.EqualFold(resolved.Host, base.Host) {
			return
		}

		resolved.Fragment = ""
		link := resolved.String()
		if !linkSet[link] {
			linkSet[link] = true
			links = append(links, link)
		}
	})

	return links
}

// shouldSkipLink determines if a link should be skipped during extraction
func shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, scheme) {
			return true
		}
	}
	return false
}

// detectContentType classifies a page by URL path and text signals
func (x *Extractor) detectContentType(pageURL *url.URL, page *models.PageData) string {
	path := strings.ToLower(pageURL.Path)
	lowerText := strings.ToLower(page.Title + " " + page.Description + " " + page.Text)

	switch {
	case strings.Contains(path, "contact") || strings.Contains(path, "contacto"):
		return models.ContentTypeContact
	case strings.Contains(path, "blog") || strings.Contains(path, "/news") || strings.Contains(path, "article"):
		return models.ContentTypeBlog
	case strings.Contains(path, "portfolio") || strings.Contains(path, "work") || strings.Contains(path, "projects"):
		return models.ContentTypePortfolio
	}

	businessHits := 0
	for _, keyword := range x.rules.BusinessKeywords {
		if strings.Contains(lowerText, keyword) {
			businessHits++
		}
	}
	if businessHits >= 2 {
		return models.ContentTypeBusiness
	}

	// Sparse pages with a call to action read as landing pages
	if page.WordCount < 300 && page.LinkCount < 10 &&
		(strings.Contains(lowerText, "sign up") || strings.Contains(lowerText, "get started") || strings.Contains(lowerText, "subscribe")) {
		return models.ContentTypeLanding
	}

	return models.ContentTypeUnknown
}

// contactScore rates how much contact information a page exposes:
// 10 points per email plus 5 per contact keyword found, capped at 100
func (x *Extractor) contactScore(page *models.PageData) int {
	score := len(page.Emails) * 10

	lowerText := strings.ToLower(page.Text)
	for _, keyword := range x.rules.ContactKeywords {
		if strings.Contains(lowerText, keyword) {
			score += 5
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// qualityScore computes a weighted completeness score in [0,100].
// Weights: title 0.2, description 0.15, keywords 0.1, content length 0.2,
// emails 0.15, contact signal 0.1.
func (x *Extractor) qualityScore(page *models.PageData) float64 {
	score := 0.0

	if len(page.Title) > 10 {
		score += 0.20
	}
	if len(page.Description) > 50 {
		score += 0.15
	}
	if page.Keywords != "" {
		score += 0.10
	}

	contentRatio := float64(len(page.Text)) / 1000.0
	if contentRatio > 1 {
		contentRatio = 1
	}
	score += 0.20 * contentRatio

	emailRatio := float64(len(page.Emails)) / 5.0
	if emailRatio > 1 {
		emailRatio = 1
	}
	score += 0.15 * emailRatio

	if page.ContactScore > 0 {
		score += 0.10
	}

	return score * 100
}

// metaContent reads the content attribute of a named meta tag
func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(content)
}

// normalizeWhitespace collapses runs of whitespace to single spaces
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isHTMLContentType checks for HTML or XHTML content types
func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
