package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/taxlookup/internal/crawler"
	"github.com/nao1215/taxlookup/internal/extract"
	"github.com/nao1215/taxlookup/internal/fingerprint"
	"github.com/nao1215/taxlookup/internal/model"
	"github.com/nao1215/taxlookup/internal/proxy"
	"github.com/nao1215/taxlookup/internal/transport"
)

// Settings configures the steps of an attempt.
type Settings struct {
	// ClientFactory builds the attempt's HTTP client. Defaults to transport.NewClient.
	ClientFactory transport.Factory

	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxBodySize    int64

	Pauses Pauses
	Jitter *Jitter
	Logger *slog.Logger
}

// NewAttemptPipeline returns the pipeline of one lookup attempt:
// Initialize, Fetch Homepage, Fetch Company Page, Resolve Detail Link,
// Fetch Detail Page, Validate Page, Extract Data and Complete.
func NewAttemptPipeline(s Settings) *Pipeline {
	if s.ClientFactory == nil {
		s.ClientFactory = transport.NewClient
	}
	if s.Jitter == nil {
		s.Jitter = NewJitter(nil)
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	p := New(WithLogger(s.Logger))
	p.AddSteps(
		&InitializeStep{settings: s},
		&BootstrapStep{pause: s.Pauses.AfterHomepage, jitter: s.Jitter},
		&SearchStep{},
		&ResolveLinkStep{},
		&FetchDetailStep{pause: s.Pauses.BeforeDetail, jitter: s.Jitter},
		&ValidateStep{},
		&ExtractStep{},
		&CompleteStep{},
	)
	return p
}

// InitializeStep builds the proxy-bound client and session of the attempt.
type InitializeStep struct {
	settings Settings
}

// Name returns the step name.
func (s *InitializeStep) Name() string {
	return "initialize"
}

// Do executes the step.
func (s *InitializeStep) Do(_ context.Context, a *Attempt) error {
	browser := fingerprint.Describe(a.Fingerprint)
	a.Record.Proxy = proxy.Display(a.Proxy)
	a.Record.Browser = browser

	a.Step("Initialize", model.StepSuccess, fmt.Sprintf("Attempt %d/%d - Proxy: %s - Browser: %s",
		a.Number, a.Total, a.Record.Proxy, browser))

	if a.Proxy != nil {
		a.Logf("Using proxy URL: %s", proxy.Redact(a.Proxy))
	} else {
		a.Logf("No proxy configured - using direct connection")
	}

	lang := a.Fingerprint.Get(fingerprint.HeaderAcceptLanguage)
	if lang == "" {
		lang = "n/a"
	}
	a.Logf("Fingerprint: %s, Lang: %s", browser, lang)

	client, err := s.settings.ClientFactory(transport.Options{
		Proxy:          a.Proxy,
		Timeout:        s.settings.Timeout,
		ConnectTimeout: s.settings.ConnectTimeout,
		Headers:        a.Fingerprint.Header(),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	a.Session = crawler.NewSession(client,
		crawler.WithMaxBodySize(s.settings.MaxBodySize),
		crawler.WithLogger(s.settings.Logger),
	)
	return nil
}

// BootstrapStep visits the homepage to collect cookies and the CSRF token.
// Its failure is a warning: the attempt continues without them.
type BootstrapStep struct {
	pause  Range
	jitter *Jitter
}

// Name returns the step name.
func (s *BootstrapStep) Name() string {
	return "bootstrap"
}

// Do executes the step.
func (s *BootstrapStep) Do(ctx context.Context, a *Attempt) error {
	a.Step("Fetch Homepage", model.StepPending, "Loading masothue.com homepage for cookies/CSRF")

	start := time.Now()
	page, err := a.Session.Fetch(ctx, a.Origin(), nil)
	if err == nil && !successful(page) {
		err = fmt.Errorf("%w %d", ErrUnexpectedStatus, page.StatusCode)
	}
	elapsed := time.Since(start).Milliseconds()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		a.Step("Fetch Homepage", model.StepWarning,
			fmt.Sprintf("Homepage failed in %dms: %v - continuing without cookies", elapsed, err))
	default:
		if doc, parseErr := crawler.Parse(page); parseErr == nil {
			a.Session.CSRFToken = doc.CSRFToken()
		}
		csrf := "none"
		if a.Session.CSRFToken != "" {
			csrf = "found"
		}
		a.Step("Fetch Homepage", model.StepSuccess,
			fmt.Sprintf("Got homepage (%d) in %dms, cookies: %d, CSRF: %s",
				page.StatusCode, elapsed, a.cookieCount(), csrf))
	}

	return s.jitter.Sleep(ctx, s.pause)
}

func (a *Attempt) cookieCount() int {
	u, err := url.Parse(a.Origin())
	if err != nil {
		return 0
	}
	return len(a.Session.Client().Cookies(u))
}

// SearchStep runs the registry search for the query.
type SearchStep struct{}

// Name returns the step name.
func (s *SearchStep) Name() string {
	return "search"
}

// Do executes the step.
func (s *SearchStep) Do(ctx context.Context, a *Attempt) error {
	searchType := a.Query.Kind().SearchType()
	a.SearchURL = a.URL("/Search/?q=" + url.QueryEscape(a.Query.Raw()) + "&type=" + searchType)
	a.Step("Fetch Company Page", model.StepPending,
		fmt.Sprintf("Searching (type=%s): %s", searchType, a.SearchURL))

	headers := fingerprint.ForSameOriginNavigation(a.Fingerprint, a.Origin()).Header()

	start := time.Now()
	page, err := a.Session.Fetch(ctx, a.SearchURL, headers)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	elapsed := time.Since(start).Milliseconds()

	if page.StatusCode == http.StatusForbidden {
		a.Step("Fetch Company Page", model.StepError,
			fmt.Sprintf("Got 403 Forbidden in %dms - bot detected", elapsed))
		return model.NewFailure(model.FailureBotDetected,
			fmt.Sprintf("403 Forbidden - bot detected (attempt %d)", a.Number), ErrBotDetected)
	}
	if !successful(page) {
		return fmt.Errorf("%w %d for %s", ErrUnexpectedStatus, page.StatusCode, a.SearchURL)
	}

	a.Step("Fetch Company Page", model.StepSuccess,
		fmt.Sprintf("Got response (%d) in %dms. Final URL: %s", page.StatusCode, elapsed, page.FinalURL))
	a.Logf("Page loaded, size: %d bytes", page.Size())

	return a.load(page)
}

// ResolveLinkStep picks the company link on the search result page.
type ResolveLinkStep struct{}

// Name returns the step name.
func (s *ResolveLinkStep) Name() string {
	return "resolve_detail_link"
}

// Do executes the step.
func (s *ResolveLinkStep) Do(_ context.Context, a *Attempt) error {
	a.Link = a.Document.DetailLink(a.Query)

	switch {
	case a.Query.IsTaxCode() && a.Link.Candidates > 0:
		a.Logf("Found %d tax code links, selected: %s", a.Link.Candidates, a.Link.Path)
	case !a.Query.IsTaxCode() && a.Link.Found():
		a.Logf("Found company result link: %s => %s", a.Link.Path, a.Link.Text)
	}
	return nil
}

// FetchDetailStep follows the resolved link. Without a link the search
// page is kept as the detail page.
type FetchDetailStep struct {
	pause  Range
	jitter *Jitter
}

// Name returns the step name.
func (s *FetchDetailStep) Name() string {
	return "fetch_detail"
}

// Do executes the step.
func (s *FetchDetailStep) Do(ctx context.Context, a *Attempt) error {
	if !a.Link.Found() {
		return nil
	}

	detailURL := a.URL(a.Link.Path)
	a.Step("Fetch Detail Page", model.StepPending, "Fetching: "+detailURL)

	if err := s.jitter.Sleep(ctx, s.pause); err != nil {
		return err
	}

	fp := fingerprint.WithReferer(fingerprint.ForSameOriginNavigation(a.Fingerprint, a.Origin()), a.SearchURL)
	page, err := a.Session.Fetch(ctx, detailURL, fp.Header())
	if err != nil {
		return fmt.Errorf("detail request failed: %w", err)
	}
	if !successful(page) {
		return fmt.Errorf("%w %d for %s", ErrUnexpectedStatus, page.StatusCode, detailURL)
	}

	a.Step("Fetch Detail Page", model.StepSuccess, fmt.Sprintf("Got detail page (%d)", page.StatusCode))
	a.Logf("Detail page loaded, size: %d bytes", page.Size())

	return a.load(page)
}

// ValidateStep snapshots the page and rejects registry error pages.
type ValidateStep struct{}

// Name returns the step name.
func (s *ValidateStep) Name() string {
	return "validate"
}

// Do executes the step.
func (s *ValidateStep) Do(_ context.Context, a *Attempt) error {
	snapshot, err := crawler.StripHeavy(a.Page.Raw)
	if err != nil {
		return err
	}
	a.Snapshot = snapshot
	a.Logf("Stripped HTML size: %d bytes", len(snapshot))

	if text, found := a.Document.ErrorBanner(); found {
		a.Step("Validate Page", model.StepError, "Error message found: "+text)
		return model.NewFailure(model.FailureNotFound, "Company not found", ErrErrorBanner)
	}

	a.Step("Validate Page", model.StepSuccess, "Page loaded successfully")
	return nil
}

// ExtractStep reads the company table into the record.
type ExtractStep struct{}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the step.
func (s *ExtractStep) Do(_ context.Context, a *Attempt) error {
	a.Step("Extract Data", model.StepPending, "Parsing company information table")

	res := extract.FromDocument(a.Document.Document)
	for _, line := range res.Diagnostics {
		a.Logf("%s", line)
	}
	a.Logf("Extracted %d rows from table", res.Rows)

	if value, ok := res.Labels.Resolve(extract.KeyTaxCode); ok {
		extracted := strings.TrimSpace(value)
		requested := a.Query.Raw()

		if a.Query.IsTaxCode() && extracted != requested {
			a.Step("Validate Tax Code", model.StepError,
				fmt.Sprintf("Tax code mismatch: searched \"%s\" but got \"%s\"", requested, extracted))
			return model.NewFailure(model.FailureTaxCodeMismatch,
				fmt.Sprintf("Không tìm thấy công ty với mã số thuế \"%s\"", requested), ErrTaxCodeMismatch)
		}

		if extracted != "" && extracted != requested {
			a.Logf("  ✓ Tax code from search result: \"%s\"", extracted)
			a.Record.TaxCode = extracted
		} else {
			a.Logf("  ✓ Tax code verified: %s", extracted)
		}
	}

	err := res.Apply(a.Record)

	if a.Record.Address != "" {
		a.Logf("  ✓ Parsed address: line1=\"%s\", city=\"%s\", state=\"%s\", country=\"%s\"",
			a.Record.AddressLine1, a.Record.City, a.Record.StateProvince, a.Record.Country)
	}
	if raw := res.Value(extract.KeyPhone); raw != "" {
		a.Logf("  ✓ Phone extracted: %s -> %s", raw, a.Record.Phone)
	}

	if errors.Is(err, extract.ErrCompanyNotFound) {
		a.Step("Extract Data", model.StepError, "Could not find company name in table")
		return model.NewFailure(model.FailureNotFound, "Company information not found", err)
	}
	if err != nil {
		return err
	}

	a.Step("Extract Data", model.StepSuccess, fmt.Sprintf("Extracted data from %d rows", res.Rows))
	return nil
}

// CompleteStep finalizes a successful attempt.
type CompleteStep struct{}

// Name returns the step name.
func (s *CompleteStep) Name() string {
	return "complete"
}

// Do executes the step.
func (s *CompleteStep) Do(_ context.Context, a *Attempt) error {
	a.Record.RawHTML = a.Snapshot
	a.Record.Error = ""
	a.Record.FailureKind = model.FailureNone
	a.Step("Complete", model.StepSuccess, "Successfully fetched company information")
	return nil
}

// load makes page the current page of the attempt.
func (a *Attempt) load(page *model.Page) error {
	doc, err := crawler.Parse(page)
	if err != nil {
		return err
	}
	a.Page = page
	a.Document = doc
	return nil
}

func successful(page *model.Page) bool {
	return page.StatusCode >= 200 && page.StatusCode < 300
}
