package fingerprint

import (
	"net/http"
	"regexp"
	"strings"
)

// Header names set by the generator.
const (
	HeaderUserAgent               = "User-Agent"
	HeaderAccept                  = "Accept"
	HeaderAcceptLanguage          = "Accept-Language"
	HeaderAcceptEncoding          = "Accept-Encoding"
	HeaderCacheControl            = "Cache-Control"
	HeaderConnection              = "Connection"
	HeaderUpgradeInsecureRequests = "Upgrade-Insecure-Requests"
	HeaderDNT                     = "DNT"
	HeaderSecChUa                 = "Sec-Ch-Ua"
	HeaderSecChUaMobile           = "Sec-Ch-Ua-Mobile"
	HeaderSecChUaPlatform         = "Sec-Ch-Ua-Platform"
	HeaderSecFetchDest            = "Sec-Fetch-Dest"
	HeaderSecFetchMode            = "Sec-Fetch-Mode"
	HeaderSecFetchSite            = "Sec-Fetch-Site"
	HeaderSecFetchUser            = "Sec-Fetch-User"
	HeaderPriority                = "Priority"
	HeaderReferer                 = "Referer"
	HeaderXRequestedWith          = "X-Requested-With"
)

// Fixed header values.
const (
	AcceptDocument = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	AcceptXHR      = "application/json, text/javascript, */*; q=0.01"
	AcceptEncoding = "gzip, deflate, br"
)

type field struct {
	name  string
	value string
}

// Fingerprint is an immutable, ordered set of request headers describing
// one simulated browser. Variants are derived with the package functions.
type Fingerprint struct {
	fields []field
}

// Get returns the value of name, or "" when absent.
func (f Fingerprint) Get(name string) string {
	v, _ := f.Lookup(name)
	return v
}

// Lookup returns the value of name and whether it is present.
func (f Fingerprint) Lookup(name string) (string, bool) {
	for _, fd := range f.fields {
		if strings.EqualFold(fd.name, name) {
			return fd.value, true
		}
	}
	return "", false
}

// Has reports whether name is present.
func (f Fingerprint) Has(name string) bool {
	_, ok := f.Lookup(name)
	return ok
}

// UserAgent returns the User-Agent header.
func (f Fingerprint) UserAgent() string {
	return f.Get(HeaderUserAgent)
}

// Names returns the header names in insertion order.
func (f Fingerprint) Names() []string {
	names := make([]string, len(f.fields))
	for i, fd := range f.fields {
		names[i] = fd.name
	}
	return names
}

// Len returns the number of headers.
func (f Fingerprint) Len() int {
	return len(f.fields)
}

// Header returns a fresh http.Header holding the fingerprint.
func (f Fingerprint) Header() http.Header {
	h := make(http.Header, len(f.fields))
	for _, fd := range f.fields {
		h.Set(fd.name, fd.value)
	}
	return h
}

// with returns a copy with name set to value, replacing in place or appending.
func (f Fingerprint) with(name, value string) Fingerprint {
	out := make([]field, len(f.fields), len(f.fields)+1)
	copy(out, f.fields)
	for i := range out {
		if strings.EqualFold(out[i].name, name) {
			out[i].value = value
			return Fingerprint{fields: out}
		}
	}
	return Fingerprint{fields: append(out, field{name: name, value: value})}
}

// without returns a copy lacking the given names.
func (f Fingerprint) without(names ...string) Fingerprint {
	out := make([]field, 0, len(f.fields))
next:
	for _, fd := range f.fields {
		for _, n := range names {
			if strings.EqualFold(fd.name, n) {
				continue next
			}
		}
		out = append(out, fd)
	}
	return Fingerprint{fields: out}
}

// ForSameOriginNavigation returns fp as sent when navigating within origin,
// e.g. from the homepage to the search page.
func ForSameOriginNavigation(fp Fingerprint, origin string) Fingerprint {
	return fp.with(HeaderSecFetchSite, "same-origin").with(HeaderReferer, origin)
}

// WithReferer returns fp with a different Referer.
func WithReferer(fp Fingerprint, referer string) Fingerprint {
	return fp.with(HeaderReferer, referer)
}

// ForXHR returns fp as sent by an in-page XMLHttpRequest.
func ForXHR(fp Fingerprint) Fingerprint {
	return fp.
		with(HeaderXRequestedWith, "XMLHttpRequest").
		with(HeaderSecFetchDest, "empty").
		with(HeaderSecFetchMode, "cors").
		with(HeaderSecFetchSite, "same-origin").
		with(HeaderAccept, AcceptXHR).
		without(HeaderSecFetchUser, HeaderUpgradeInsecureRequests)
}

var (
	edgeVersion    = regexp.MustCompile(`Edg/([\d.]+)`)
	firefoxVersion = regexp.MustCompile(`Firefox/([\d.]+)`)
	safariVersion  = regexp.MustCompile(`Version/([\d.]+).*Safari`)
	chromeVersion  = regexp.MustCompile(`Chrome/([\d.]+)`)
)

// Describe returns a short browser label such as "Edge 131.0.0.0".
func Describe(fp Fingerprint) string {
	ua := fp.UserAgent()
	for _, b := range []struct {
		name string
		re   *regexp.Regexp
	}{
		{"Edge", edgeVersion},
		{"Firefox", firefoxVersion},
		{"Safari", safariVersion},
		{"Chrome", chromeVersion},
	} {
		if m := b.re.FindStringSubmatch(ua); m != nil {
			return b.name + " " + m[1]
		}
	}
	return "Unknown Browser"
}
