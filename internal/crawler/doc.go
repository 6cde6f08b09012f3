// Package crawler fetches and queries registry pages.
//
// # Architecture
//
// A Session wraps the per-attempt transport client. It owns the cookie jar
// of one attempt and the CSRF token scraped from the homepage, and is
// never reused across attempts.
//
// Fetched pages are parsed into a Document, a thin wrapper over
// goquery.Document with the queries the lookup flow needs:
//
//   - CSRFToken: the token exposed by the homepage
//   - DetailLink: the company link on a search result page
//   - ErrorBanner: the "not found" banner of the registry
//
// # Usage
//
//	session := crawler.NewSession(client)
//	page, err := session.Fetch(ctx, searchURL, fp.Header())
//	doc, err := crawler.Parse(page)
//	link := doc.DetailLink(query)
//
// # Limits
//
// Bodies are read up to model.MaxPageSize and decoded to UTF-8 from the
// declared or sniffed charset before parsing.
package crawler
