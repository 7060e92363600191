package crawler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

func testExtractor() *Extractor {
	return NewExtractor(common.DefaultFilterRules(), arbor.NewLogger())
}

func htmlResult(url, html string) *FetchResult {
	return &FetchResult{
		URL:          url,
		StatusCode:   200,
		ContentType:  "text/html; charset=utf-8",
		Body:         []byte(html),
		ResponseTime: 120 * time.Millisecond,
	}
}

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
	<title>Acme Consulting - Professional Business Services</title>
	<meta name="description" content="Acme provides professional consulting services for growing companies across the region.">
	<meta name="keywords" content="consulting, business, services">
</head>
<body>
	<h1>Acme Consulting</h1>
	<p>We offer consulting services and business solutions for your company.
	Our professional team has years of enterprise experience.</p>
	<p>Contact us at info@acme-consulting.com or visit our office.</p>
	<a href="/about">About</a>
	<a href="/services">Services</a>
	<a href="/services">Services again</a>
	<a href="https://external.com/page">External</a>
	<a href="mailto:info@acme-consulting.com">Email</a>
	<img src="/logo.png">
	<script>var tracking = "ignore-me";</script>
</body>
</html>`

func TestExtractor_BuildsPageData(t *testing.T) {
	x := testExtractor()

	page, err := x.Extract("job_1", FrontierEntry{URL: "https://acme-consulting.com/", Depth: 1, SourceURL: "https://acme-consulting.com/sitemap"}, htmlResult("https://acme-consulting.com/", samplePage))
	if err != nil {
		t.Fatal(err)
	}

	if page.Title != "Acme Consulting - Professional Business Services" {
		t.Errorf("unexpected title %q", page.Title)
	}
	if !strings.Contains(page.Description, "professional consulting") {
		t.Errorf("unexpected description %q", page.Description)
	}
	if page.HTMLLang != "en" {
		t.Errorf("unexpected lang %q", page.HTMLLang)
	}
	if page.Domain != "acme-consulting.com" {
		t.Errorf("unexpected domain %q", page.Domain)
	}
	if page.Depth != 1 {
		t.Errorf("unexpected depth %d", page.Depth)
	}
	if page.SourceURL != "https://acme-consulting.com/sitemap" {
		t.Errorf("unexpected source url %q", page.SourceURL)
	}
	if len(page.Emails) == 0 || page.Emails[0].Address != "info@acme-consulting.com" {
		t.Errorf("email not extracted: %v", page.Emails)
	}
	if strings.Contains(page.Text, "ignore-me") {
		t.Error("script content leaked into visible text")
	}
	if page.WordCount == 0 {
		t.Error("word count not computed")
	}
}

func TestExtractor_SameHostLinksOnly(t *testing.T) {
	x := testExtractor()

	page, err := x.Extract("job_1", FrontierEntry{URL: "https://acme-consulting.com/"}, htmlResult("https://acme-consulting.com/", samplePage))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{
		"https://acme-consulting.com/about":    true,
		"https://acme-consulting.com/services": true,
	}
	if len(page.Links) != len(want) {
		t.Fatalf("expected %d links, got %v", len(want), page.Links)
	}
	for _, link := range page.Links {
		if !want[link] {
			t.Errorf("unexpected link %q", link)
		}
	}
}

func TestExtractor_RejectsInvalidResponses(t *testing.T) {
	x := testExtractor()
	entry := FrontierEntry{URL: "https://acme-consulting.com/"}

	tests := []struct {
		name string
		res  *FetchResult
	}{
		{"error status", &FetchResult{URL: entry.URL, StatusCode: 404, ContentType: "text/html", Body: []byte(samplePage)}},
		{"non-html", &FetchResult{URL: entry.URL, StatusCode: 200, ContentType: "application/json", Body: []byte(samplePage)}},
		{"tiny body", &FetchResult{URL: entry.URL, StatusCode: 200, ContentType: "text/html", Body: []byte("<html></html>")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := x.Extract("job_1", entry, tt.res)
			if !errors.Is(err, ErrPageInvalid) {
				t.Errorf("expected ErrPageInvalid, got %v", err)
			}
		})
	}
}

func TestExtractor_ContentTypeByPath(t *testing.T) {
	x := testExtractor()
	filler := strings.Repeat("<p>plain filler text without signals</p>", 10)

	tests := []struct {
		url  string
		want string
	}{
		{"https://site.com/contact", models.ContentTypeContact},
		{"https://site.com/contacto-empresa", models.ContentTypeContact},
		{"https://site.com/blog/post-1", models.ContentTypeBlog},
		{"https://site.com/portfolio/2024", models.ContentTypePortfolio},
	}

	for _, tt := range tests {
		html := "<html><head><title>x</title></head><body>" + filler + "</body></html>"
		page, err := x.Extract("job_1", FrontierEntry{URL: tt.url}, htmlResult(tt.url, html))
		if err != nil {
			t.Fatal(err)
		}
		if page.ContentType != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.url, tt.want, page.ContentType)
		}
	}
}

func TestExtractor_BusinessClassification(t *testing.T) {
	x := testExtractor()
	html := `<html><head><title>Firm</title></head><body>
		<p>Our company offers consulting and enterprise solutions with professional services for every business.</p>
		` + strings.Repeat("<p>more text</p>", 10) + `</body></html>`

	page, err := x.Extract("job_1", FrontierEntry{URL: "https://firm.com/somewhere"}, htmlResult("https://firm.com/somewhere", html))
	if err != nil {
		t.Fatal(err)
	}
	if page.ContentType != models.ContentTypeBusiness {
		t.Errorf("expected business, got %s", page.ContentType)
	}
}

func TestExtractor_ContactScore(t *testing.T) {
	x := testExtractor()

	page := &models.PageData{
		Text: "Contact us by phone or email at our address",
		Emails: []models.ExtractedEmail{
			{Address: "a@b.com"}, {Address: "c@d.com"},
		},
	}

	// 2 emails = 20, plus 5 per matched contact keyword
	score := x.contactScore(page)
	if score < 30 {
		t.Errorf("expected score >= 30, got %d", score)
	}
	if score > 100 {
		t.Errorf("score %d exceeds cap", score)
	}
}

func TestExtractor_QualityScoreRange(t *testing.T) {
	x := testExtractor()

	empty := &models.PageData{}
	if got := x.qualityScore(empty); got != 0 {
		t.Errorf("empty page should score 0, got %f", got)
	}

	full := &models.PageData{
		Title:        "A reasonably long page title here",
		Description:  strings.Repeat("good description text ", 5),
		Keywords:     "some, keywords",
		Text:         strings.Repeat("word ", 1000),
		ContactScore: 50,
		Emails: []models.ExtractedEmail{
			{Address: "a@b.com"}, {Address: "c@d.com"}, {Address: "e@f.com"},
			{Address: "g@h.com"}, {Address: "i@j.com"},
		},
	}
	// Weights sum to 0.9, so the ceiling is 90
	got := x.qualityScore(full)
	if got < 89.9 || got > 90.1 {
		t.Errorf("fully populated page should score 90, got %f", got)
	}
}

func TestIsHTMLContentType(t *testing.T) {
	if !isHTMLContentType("text/html; charset=utf-8") {
		t.Error("text/html rejected")
	}
	if !isHTMLContentType("application/xhtml+xml") {
		t.Error("xhtml rejected")
	}
	if isHTMLContentType("application/pdf") {
		t.Error("pdf accepted")
	}
}
