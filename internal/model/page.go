package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// MaxPageSize is the default cap on a response body.
const MaxPageSize = 5 * 1024 * 1024

// Page is one fetched registry page.
type Page struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// FinalURL is the URL after redirects.
	FinalURL string `json:"final_url"`

	StatusCode int `json:"status_code"`

	Headers http.Header `json:"headers,omitempty"`

	ContentType string `json:"content_type"`

	// Raw is the decoded (UTF-8) body, limited to the configured size.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 of Raw.
	Hash string `json:"hash"`
}

// ComputeHash sets Hash from Raw.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// GetHeader returns the first value of the named header.
func (p *Page) GetHeader(name string) string {
	if p.Headers == nil {
		return ""
	}
	return p.Headers.Get(name)
}

// IsHTML reports whether the page declares an HTML content type.
// Pages without a content type are treated as HTML.
func (p *Page) IsHTML() bool {
	if p.ContentType == "" {
		return true
	}
	ct := strings.ToLower(p.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// Size returns the body length in bytes.
func (p *Page) Size() int {
	return len(p.Raw)
}
