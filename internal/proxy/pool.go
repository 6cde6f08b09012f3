package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"

	tlog "github.com/nao1215/taxlookup/internal/log"
)

var (
	// ErrProxyFileNotFound is returned by LoadFile when the file does not exist.
	ErrProxyFileNotFound = errors.New("proxy file not found")
	// ErrNoProxies is returned by LoadFile when the file holds no entries.
	ErrNoProxies = errors.New("no proxies found")
	// ErrInvalidProxyURL is returned for an entry that is not a usable proxy URL.
	ErrInvalidProxyURL = errors.New("invalid proxy URL")
)

// supportedSchemes lists the proxy schemes the transport can dial.
var supportedSchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// Pool hands out proxy endpoints so that no endpoint repeats within a
// lookup until every endpoint has been used once.
type Pool struct {
	source    string
	endpoints []*url.URL

	mu   sync.Mutex
	used map[int]bool
	rng  *rand.Rand
}

// Option configures a Pool.
type Option func(*Pool)

// WithRand sets the random source used to pick endpoints.
func WithRand(r *rand.Rand) Option {
	return func(p *Pool) {
		if r != nil {
			p.rng = r
		}
	}
}

// WithSource names where the endpoints came from, for diagnostics.
func WithSource(source string) Option {
	return func(p *Pool) {
		p.source = source
	}
}

// NewPool returns a pool over endpoints. An empty pool is valid and makes
// every attempt connect directly.
func NewPool(endpoints []*url.URL, opts ...Option) *Pool {
	p := &Pool{
		source:    "manual config",
		endpoints: append([]*url.URL(nil), endpoints...),
		used:      make(map[int]bool),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadFile reads one proxy per line from path. Blank lines and lines
// starting with '#' are skipped.
func LoadFile(path string, opts ...Option) (*Pool, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided proxy list
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProxyFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer f.Close()

	var endpoints []*url.URL
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := ParseURL(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		endpoints = append(endpoints, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy file: %w", err)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w in file: %s", ErrNoProxies, path)
	}

	return NewPool(endpoints, append([]Option{WithSource(path)}, opts...)...), nil
}

// ParseURL parses a proxy entry. Entries without a scheme are taken as
// HTTP proxies ("host:port" becomes "http://host:port").
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxyURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !supportedSchemes[u.Scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxyURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxyURL)
	}
	return u, nil
}

// Next returns a random endpoint not yet used in the current cycle. When
// every endpoint has been used the cycle restarts. It returns false for an
// empty pool.
func (p *Pool) Next() (*url.URL, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return nil, false
	}

	available := make([]int, 0, len(p.endpoints))
	for i := range p.endpoints {
		if !p.used[i] {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		clear(p.used)
		for i := range p.endpoints {
			available = append(available, i)
		}
	}

	idx := available[p.rng.IntN(len(available))]
	p.used[idx] = true
	u := *p.endpoints[idx]
	return &u, true
}

// Reset starts a new cycle.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.used)
}

// Clone returns a pool over the same endpoints with its own cycle. The
// engine clones the pool per lookup so concurrent lookups do not share
// a used-set.
func (p *Pool) Clone() *Pool {
	p.mu.Lock()
	seed := p.rng.Uint64()
	p.mu.Unlock()

	return NewPool(p.endpoints,
		WithSource(p.source),
		WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))), //nolint:gosec // not security sensitive
	)
}

// Len returns the number of endpoints.
func (p *Pool) Len() int {
	return len(p.endpoints)
}

// Source describes where the endpoints were loaded from.
func (p *Pool) Source() string {
	return p.source
}

// Endpoints returns copies of all endpoints in load order.
func (p *Pool) Endpoints() []*url.URL {
	out := make([]*url.URL, len(p.endpoints))
	for i, e := range p.endpoints {
		u := *e
		out[i] = &u
	}
	return out
}

// Display returns the "host:port" label of u, or "No proxy" for nil.
func Display(u *url.URL) string {
	if u == nil {
		return "No proxy"
	}
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// Redact renders u for logs with its password masked.
func Redact(u *url.URL) string {
	return tlog.RedactURL(u)
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "socks5", "socks5h":
		return "1080"
	default:
		return "80"
	}
}
