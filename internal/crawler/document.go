package crawler

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/taxlookup/internal/model"
)

// Document is a parsed registry page.
type Document struct {
	*goquery.Document
}

// Parse builds a Document from a fetched page.
func Parse(page *model.Page) (*Document, error) {
	return ParseBytes(page.Raw)
}

// ParseBytes builds a Document from UTF-8 HTML.
func ParseBytes(raw []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{Document: doc}, nil
}

// CSRFToken returns the CSRF token exposed by the page, or "".
// The meta tag wins over hidden form inputs.
func (d *Document) CSRFToken() string {
	if token, ok := d.Find(`meta[name="csrf-token"]`).First().Attr("content"); ok && token != "" {
		return token
	}
	for _, name := range []string{"token", "_token"} {
		sel := d.Find(fmt.Sprintf(`input[name=%q]`, name)).First()
		if token, ok := sel.Attr("value"); ok && token != "" {
			return token
		}
	}
	return ""
}

// Link is a company link found on a search result page.
type Link struct {
	// Path is the href, relative to the registry origin.
	Path string
	// Text is the anchor text.
	Text string
	// Candidates is the number of anchors that matched the query.
	Candidates int
	// Branch reports whether Path points to a branch office.
	Branch bool
}

// Found reports whether a link was resolved.
func (l Link) Found() bool {
	return l.Path != ""
}

var companyPath = regexp.MustCompile(`^/\d{10,14}-[a-z]`)

// DetailLink resolves the company detail link for q.
//
// For a tax code, anchors whose href starts with "/<taxcode>-" are
// candidates and the head office beats a branch ("/<taxcode>-NNN-").
// For a name, the first anchor that looks like a company page wins.
// A zero Link means the search page itself is the detail page.
func (d *Document) DetailLink(q model.Query) Link {
	if q.IsTaxCode() {
		return d.taxCodeLink(q.Raw())
	}
	return d.nameLink()
}

func (d *Document) taxCodeLink(taxCode string) Link {
	prefix := "/" + taxCode + "-"
	branch := regexp.MustCompile(`^/` + regexp.QuoteMeta(taxCode) + `-\d{3}-`)

	var (
		candidates int
		primary    Link
		fallback   Link
	)
	d.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.HasPrefix(href, prefix) {
			return
		}
		candidates++
		text := strings.TrimSpace(a.Text())
		if text == "" || primary.Found() {
			return
		}
		if branch.MatchString(href) {
			if !fallback.Found() {
				fallback = Link{Path: href, Text: text, Branch: true}
			}
			return
		}
		primary = Link{Path: href, Text: text}
	})

	link := primary
	if !link.Found() {
		link = fallback
	}
	link.Candidates = candidates
	return link
}

func (d *Document) nameLink() Link {
	var link Link
	d.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !companyPath.MatchString(href) {
			return true
		}
		link.Candidates++
		text := strings.TrimSpace(a.Text())
		if text == "" {
			return true
		}
		link.Path = href
		link.Text = text
		return false
	})
	if !link.Found() {
		link.Candidates = 0
	}
	return link
}

// errorBanners match the registry's "not found" messages by class
// substring, so variants like alert-danger-lg also count. Rows styled as
// tr.alert-danger mark inactive companies and are not banners.
const errorBanners = `div[class*="alert-danger"], p[class*="alert-danger"], [class*="error-message"]`

// ErrorBanner returns the text of the first error banner on the page.
func (d *Document) ErrorBanner() (string, bool) {
	sel := d.Find(errorBanners)
	if sel.Length() == 0 {
		return "", false
	}
	return strings.Join(strings.Fields(sel.First().Text()), " "), true
}

// StripHeavy renders raw without head, script and style elements.
func StripHeavy(raw []byte) (string, error) {
	doc, err := ParseBytes(raw)
	if err != nil {
		return "", err
	}
	doc.Find("head, script, style").Remove()
	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render stripped HTML: %w", err)
	}
	return html, nil
}
