package models

import (
	"time"
)

// Email extraction sources
const (
	EmailSourcePlain      = "plain"
	EmailSourceMailto     = "mailto"
	EmailSourcePrefixed   = "prefixed"
	EmailSourceObfuscated = "obfuscated"
	EmailSourceForm       = "form"
	EmailSourceComment    = "comment"
	EmailSourceMeta       = "meta"
)

// Email classification types
const (
	EmailTypePersonal = "personal"
	EmailTypeBusiness = "business"
	EmailTypeNoReply  = "noreply"
	EmailTypeUnknown  = "unknown"
)

// ExtractedEmail is an email address found on a page, before persistence
type ExtractedEmail struct {
	Address string `json:"address"`
	Source  string `json:"source"`
	Type    string `json:"type,omitempty"`
	Quality int    `json:"quality,omitempty"`
}

// EmailRecord is the persisted form of an extracted email. Key is
// page URL + address so the same address on different pages is kept,
// while re-crawling a page never duplicates.
type EmailRecord struct {
	ID        string    `json:"id" badgerhold:"key"`
	PageURL   string    `json:"page_url" badgerhold:"index"`
	Domain    string    `json:"domain" badgerhold:"index"`
	JobID     string    `json:"job_id" badgerhold:"index"`
	Address   string    `json:"address"`
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	Quality   int       `json:"quality"`
	CreatedAt time.Time `json:"created_at"`
}

// EmailKey builds the storage key for an email on a page
func EmailKey(pageURL, address string) string {
	return pageURL + "|" + address
}
