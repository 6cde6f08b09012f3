package fingerprint

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

// Generator draws random fingerprints from an immutable Catalog.
// It is safe for concurrent use.
type Generator struct {
	catalog Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithCatalog replaces the default catalog. The catalog is copied.
func WithCatalog(c Catalog) Option {
	return func(g *Generator) {
		g.catalog = c.clone()
	}
}

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

// NewGenerator returns a Generator using DefaultCatalog unless overridden.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		catalog: DefaultCatalog(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Catalog returns a copy of the generator's catalog.
func (g *Generator) Catalog() Catalog {
	return g.catalog.clone()
}

// Generate picks a profile, language and referer independently and
// uniformly and builds the headers of a top-level document navigation.
func (g *Generator) Generate() Fingerprint {
	g.mu.Lock()
	profile := pick(g.rng, g.catalog.Profiles, Profile{})
	language := pick(g.rng, g.catalog.Languages, "")
	referer := pick(g.rng, g.catalog.Referers, "")
	dnt := g.rng.IntN(2)
	g.mu.Unlock()

	ua := profile.UserAgent
	isFirefox := strings.Contains(ua, "Firefox")
	isSafari := strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome")

	fields := []field{
		{HeaderUserAgent, ua},
		{HeaderAccept, AcceptDocument},
		{HeaderAcceptLanguage, language},
		{HeaderAcceptEncoding, AcceptEncoding},
		{HeaderCacheControl, "max-age=0"},
		{HeaderConnection, "keep-alive"},
		{HeaderUpgradeInsecureRequests, "1"},
		{HeaderDNT, strconv.Itoa(dnt)},
	}

	if profile.Chromium() {
		fields = append(fields,
			field{HeaderSecChUa, profile.SecChUa},
			field{HeaderSecChUaMobile, "?0"},
			field{HeaderSecChUaPlatform, `"` + profile.Platform + `"`},
		)
	}

	site := "none"
	if referer != "" {
		site = "cross-site"
	}
	fields = append(fields,
		field{HeaderSecFetchDest, "document"},
		field{HeaderSecFetchMode, "navigate"},
		field{HeaderSecFetchSite, site},
		field{HeaderSecFetchUser, "?1"},
	)

	if !isFirefox && !isSafari {
		fields = append(fields, field{HeaderPriority, "u=0, i"})
	}
	if referer != "" {
		fields = append(fields, field{HeaderReferer, referer})
	}

	return Fingerprint{fields: fields}
}

func pick[T any](r *rand.Rand, items []T, zero T) T {
	if len(items) == 0 {
		return zero
	}
	return items[r.IntN(len(items))]
}
