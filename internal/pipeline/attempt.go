package pipeline

import (
	"net/url"
	"strings"

	"github.com/nao1215/taxlookup/internal/crawler"
	"github.com/nao1215/taxlookup/internal/fingerprint"
	"github.com/nao1215/taxlookup/internal/model"
)

// Attempt is the state of one lookup attempt. Steps read what earlier
// steps produced and add their own results.
type Attempt struct {
	// Number is the 1-based attempt number out of Total.
	Number int
	Total  int

	Query   model.Query
	BaseURL string

	// Proxy is nil for a direct connection.
	Proxy       *url.URL
	Fingerprint fingerprint.Fingerprint

	// Session is built by the Initialize step.
	Session *crawler.Session

	SearchURL string
	// Link is the detail link resolved from the search page.
	Link crawler.Link
	// Page is the page being validated and extracted: the detail page
	// when a link was followed, otherwise the search page.
	Page     *model.Page
	Document *crawler.Document
	// Snapshot is Page without head, script and style elements.
	Snapshot string

	Trail  *model.Trail
	Record *model.CompanyRecord
}

// NewAttempt prepares attempt number of total for q.
func NewAttempt(q model.Query, number, total int, trail *model.Trail) *Attempt {
	if trail == nil {
		trail = model.NewTrail(nil)
	}
	return &Attempt{
		Number: number,
		Total:  total,
		Query:  q,
		Trail:  trail,
		Record: &model.CompanyRecord{TaxCode: q.Raw()},
	}
}

// Origin returns the registry origin with a trailing slash.
func (a *Attempt) Origin() string {
	return strings.TrimRight(a.BaseURL, "/") + "/"
}

// URL resolves path against the registry origin.
func (a *Attempt) URL(path string) string {
	return strings.TrimRight(a.BaseURL, "/") + path
}

// Step records a step and mirrors it to the log as "name: status - message".
func (a *Attempt) Step(name string, status model.StepStatus, message string) {
	a.Trail.Step(name, status, message)
	if message == "" {
		a.Trail.Logf("%s: %s", name, status)
		return
	}
	a.Trail.Logf("%s: %s - %s", name, status, message)
}

// Logf appends a timestamped log line.
func (a *Attempt) Logf(format string, args ...any) {
	a.Trail.Logf(format, args...)
}
