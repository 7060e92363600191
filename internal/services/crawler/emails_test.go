package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/venator/internal/models"
)

func extractFromHTML(t *testing.T, html string) []models.ExtractedEmail {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return NewEmailExtractor().Extract(doc, html)
}

func addresses(emails []models.ExtractedEmail) map[string]string {
	m := make(map[string]string, len(emails))
	for _, e := range emails {
		m[e.Address] = e.Source
	}
	return m
}

func TestEmailExtractor_PlainText(t *testing.T) {
	emails := extractFromHTML(t, `<html><body><p>Reach us at john.doe@example.com today.</p></body></html>`)

	got := addresses(emails)
	if got["john.doe@example.com"] != models.EmailSourcePlain {
		t.Errorf("expected plain source, got %v", got)
	}
}

func TestEmailExtractor_Mailto(t *testing.T) {
	emails := extractFromHTML(t, `<html><body><a href="mailto:Sales@Example.com?subject=Quote">Email us</a></body></html>`)

	got := addresses(emails)
	if _, ok := got["sales@example.com"]; !ok {
		t.Errorf("mailto address not found or not lowercased: %v", got)
	}
}

func TestEmailExtractor_Obfuscated(t *testing.T) {
	tests := []string{
		`<html><body>contact me: jane [at] example.com</body></html>`,
		`<html><body>contact me: jane (at) example.com</body></html>`,
		`<html><body>contact me: jane @ example.com</body></html>`,
	}
	for _, html := range tests {
		emails := extractFromHTML(t, html)
		got := addresses(emails)
		if got["jane@example.com"] != models.EmailSourceObfuscated {
			t.Errorf("obfuscated form missed in %q: %v", html, got)
		}
	}
}

func TestEmailExtractor_PrefixedSpanish(t *testing.T) {
	emails := extractFromHTML(t, `<html><body><p>Correo: ventas@tienda.es</p></body></html>`)

	got := addresses(emails)
	if _, ok := got["ventas@tienda.es"]; !ok {
		t.Errorf("prefixed Spanish address not found: %v", got)
	}
}

func TestEmailExtractor_FormFields(t *testing.T) {
	html := `<html><body><form>
		<input type="text" value="prefill@example.com">
		<input type="email" placeholder="you@yourcompany.com">
	</form></body></html>`
	emails := extractFromHTML(t, html)

	got := addresses(emails)
	if _, ok := got["prefill@example.com"]; !ok {
		t.Errorf("input value address not found: %v", got)
	}
	if _, ok := got["you@yourcompany.com"]; !ok {
		t.Errorf("placeholder address not found: %v", got)
	}
}

func TestEmailExtractor_HTMLComments(t *testing.T) {
	emails := extractFromHTML(t, `<html><body><!-- webmaster: hidden@example.com --><p>Hi</p></body></html>`)

	// The plain-text pass scans raw markup, so the address may carry
	// either source; what matters is that it is found
	got := addresses(emails)
	if _, ok := got["hidden@example.com"]; !ok {
		t.Errorf("comment address not found: %v", got)
	}
}

func TestEmailExtractor_MetaContent(t *testing.T) {
	emails := extractFromHTML(t, `<html><head><meta name="author" content="Web Team press@example.com"></head><body>x</body></html>`)

	got := addresses(emails)
	if _, ok := got["press@example.com"]; !ok {
		t.Errorf("meta address not found: %v", got)
	}
}

func TestEmailExtractor_Dedup(t *testing.T) {
	html := `<html><body>
		<a href="mailto:info@example.com">info@example.com</a>
		<p>email: INFO@example.com</p>
	</body></html>`
	emails := extractFromHTML(t, html)

	if len(emails) != 1 {
		t.Errorf("expected 1 deduplicated address, got %d: %v", len(emails), emails)
	}
}

func TestEmailExtractor_TrimsPunctuation(t *testing.T) {
	emails := extractFromHTML(t, `<html><body>Write to sales@example.com.</body></html>`)

	got := addresses(emails)
	if _, ok := got["sales@example.com"]; !ok {
		t.Errorf("trailing punctuation not trimmed: %v", got)
	}
}

func TestIsValidEmailFormat(t *testing.T) {
	valid := []string{
		"a@b.co",
		"john.doe+tag@sub.example.com",
		"x_y@example.org",
	}
	for _, addr := range valid {
		if !IsValidEmailFormat(addr) {
			t.Errorf("expected %q to be valid", addr)
		}
	}

	invalid := []string{
		"",
		"plain",
		"two@@example.com",
		"@example.com",
		".leading@example.com",
		"trailing.@example.com",
		"user@nodot",
		"user@example.c",
		"user@example.c0m",
		strings.Repeat("a", 65) + "@example.com",
		"user@" + strings.Repeat("d", 250) + ".com",
	}
	for _, addr := range invalid {
		if IsValidEmailFormat(addr) {
			t.Errorf("expected %q to be invalid", addr)
		}
	}
}
