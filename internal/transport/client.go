package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// MaxRedirects is the number of redirects followed before the last
// response is returned as is.
const MaxRedirects = 10

// ErrUnsupportedProxyScheme is returned for proxy URLs the transport cannot dial.
var ErrUnsupportedProxyScheme = errors.New("unsupported proxy scheme")

// Options configures one attempt's HTTP client.
type Options struct {
	// Proxy routes every connection; nil connects directly.
	Proxy *url.URL

	// Timeout bounds a whole request including redirects and body.
	Timeout time.Duration

	// ConnectTimeout bounds TCP connect and TLS handshake.
	ConnectTimeout time.Duration

	// Headers are added to requests that do not already carry them.
	Headers http.Header
}

// Client is an HTTP client with its own cookie jar, bound to one proxy.
// Clients are built per attempt and never shared between attempts.
type Client struct {
	http  *http.Client
	jar   http.CookieJar
	proxy *url.URL
}

// Factory builds a Client. Tests substitute it to observe or fake transport.
type Factory func(Options) (*Client, error)

// NewClient builds a Client from opts.
//
// TLS verification is relaxed because the registry is reached through
// arbitrary intercepting proxies.
func NewClient(opts Options) (*Client, error) {
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}

	base := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // proxies may intercept TLS
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		// Accept-Encoding is set from the fingerprint, so bodies are decoded
		// by decodingTransport instead.
		DisableCompression: true,
	}

	if opts.Proxy != nil {
		switch opts.Proxy.Scheme {
		case "http", "https":
			base.Proxy = http.ProxyURL(opts.Proxy)
		case "socks5", "socks5h":
			socks, err := socksDialer(opts.Proxy, dialer)
			if err != nil {
				return nil, err
			}
			base.DialContext = socks
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxyScheme, opts.Proxy.Scheme)
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = &decodingTransport{base: base}
	if len(opts.Headers) > 0 {
		rt = &headerInjectingTransport{base: rt, headers: opts.Headers.Clone()}
	}

	return &Client{
		http: &http.Client{
			Transport: rt,
			Timeout:   opts.Timeout,
			Jar:       jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > MaxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		jar:   jar,
		proxy: opts.Proxy,
	}, nil
}

func socksDialer(u *url.URL, forward *net.Dialer) (func(context.Context, string, string) (net.Conn, error), error) {
	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}

	port := u.Port()
	if port == "" {
		port = "1080"
	}
	d, err := proxy.SOCKS5("tcp", net.JoinHostPort(u.Hostname(), port), auth, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// Do sends req with the client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Cookies returns the cookies the jar would send to u.
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	return c.jar.Cookies(u)
}

// Proxy returns the proxy the client is bound to, or nil.
func (c *Client) Proxy() *url.URL {
	return c.proxy
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// headerInjectingTransport adds default headers to every request,
// including redirected ones, without overriding headers the caller set.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, values := range t.headers {
		if clone.Header.Get(key) != "" {
			continue
		}
		for _, v := range values {
			clone.Header.Add(key, v)
		}
	}
	return t.base.RoundTrip(clone)
}
