package models

import (
	"time"
)

// Page content types detected by the extractor
const (
	ContentTypeBusiness  = "business"
	ContentTypeBlog      = "blog"
	ContentTypeLanding   = "landing"
	ContentTypeContact   = "contact"
	ContentTypePortfolio = "portfolio"
	ContentTypeUnknown   = "unknown"
)

// PageRecord is the persisted form of an accepted page. Keyed by normalized
// URL so re-crawls update in place and bump ScrapeCount.
type PageRecord struct {
	URL          string    `json:"url" badgerhold:"key"`
	SourceURL    string    `json:"source_url,omitempty"`
	Domain       string    `json:"domain" badgerhold:"index"`
	JobID        string    `json:"job_id" badgerhold:"index"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Keywords     string    `json:"keywords,omitempty"`
	Language     string    `json:"language"`
	ContentType  string    `json:"content_type"`
	QualityScore float64   `json:"quality_score"`
	ContactScore int       `json:"contact_score"`
	WordCount    int       `json:"word_count"`
	LinkCount    int       `json:"link_count"`
	ImageCount   int       `json:"image_count"`
	PageSize     int       `json:"page_size"`
	ResponseTime int64     `json:"response_time_ms"`
	HTTPStatus   int       `json:"http_status"`
	ScrapeCount  int       `json:"scrape_count"`
	FirstScraped time.Time `json:"first_scraped"`
	LastScraped  time.Time `json:"last_scraped"`
}

// PageData is the in-flight representation of a fetched page as it moves
// through extraction and the content pipeline. Not persisted directly.
type PageData struct {
	URL          string
	SourceURL    string
	Domain       string
	JobID        string
	Depth        int
	HTTPStatus   int
	ResponseTime int64
	PageSize     int

	Title       string
	Description string
	Keywords    string
	HTMLLang    string
	Text        string
	Links       []string
	Emails      []ExtractedEmail

	WordCount  int
	LinkCount  int
	ImageCount int

	// Set by the extractor
	ContentType  string
	ContactScore int
	QualityScore float64

	// Set by pipeline stages
	Language string
}

// EmailAddresses returns just the address strings for fingerprinting
func (p *PageData) EmailAddresses() []string {
	addrs := make([]string, 0, len(p.Emails))
	for _, e := range p.Emails {
		addrs = append(addrs, e.Address)
	}
	return addrs
}

// ToRecord converts in-flight page data to its persisted form
func (p *PageData) ToRecord(now time.Time) *PageRecord {
	return &PageRecord{
		URL:          p.URL,
		SourceURL:    p.SourceURL,
		Domain:       p.Domain,
		JobID:        p.JobID,
		Title:        p.Title,
		Description:  p.Description,
		Keywords:     p.Keywords,
		Language:     p.Language,
		ContentType:  p.ContentType,
		QualityScore: p.QualityScore,
		ContactScore: p.ContactScore,
		WordCount:    p.WordCount,
		LinkCount:    p.LinkCount,
		ImageCount:   p.ImageCount,
		PageSize:     p.PageSize,
		ResponseTime: p.ResponseTime,
		HTTPStatus:   p.HTTPStatus,
		ScrapeCount:  1,
		FirstScraped: now,
		LastScraped:  now,
	}
}
