// Package fingerprint generates believable desktop-browser request headers.
//
// A Generator draws a browser profile, an Accept-Language value and a
// referer from an immutable Catalog and returns a Fingerprint, an ordered
// header set that is never mutated. Navigation variants are derived from a
// base fingerprint:
//
//	fp := gen.Generate()                                  // landing on the homepage
//	search := fingerprint.ForSameOriginNavigation(fp, "https://masothue.com/")
//	detail := fingerprint.WithReferer(search, searchURL)
//	xhr := fingerprint.ForXHR(fp)
//
// Client hints (Sec-Ch-Ua*) are only sent for Chromium-based profiles, and
// the Priority header is omitted for Firefox and Safari.
package fingerprint
