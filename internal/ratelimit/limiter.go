package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Window is the request history of one client.
type Window struct {
	IP string `json:"ip"`
	// Requests are Unix timestamps in seconds.
	Requests    []int64 `json:"requests"`
	LastRequest int64   `json:"last_request"`
}

// Result is the outcome of a Check.
type Result struct {
	Allowed bool
	// Remaining is the number of further requests allowed in the window,
	// -1 for whitelisted clients.
	Remaining int
	// Reset is when the oldest request leaves the window; zero for
	// whitelisted clients.
	Reset time.Time
	// RetryAfter is set for denied requests.
	RetryAfter  time.Duration
	Whitelisted bool
	IP          string
}

// ResetUnix returns Reset in Unix seconds, 0 when unset.
func (r Result) ResetUnix() int64 {
	if r.Reset.IsZero() {
		return 0
	}
	return r.Reset.Unix()
}

// Config configures a Limiter.
type Config struct {
	MaxRequests int
	Window      time.Duration
	// Whitelist entries are IPs or CIDRs (see ParseWhitelistEntry).
	Whitelist []string
	// HashKey keys the hash that turns IPs into storage keys.
	HashKey string
}

// Limiter enforces a sliding window per client IP.
type Limiter struct {
	store     Store
	max       int
	window    time.Duration
	whitelist *Whitelist
	hashKey   []byte
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the limiter's clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New builds a Limiter persisting windows in store.
func New(store Store, cfg Config, opts ...Option) (*Limiter, error) {
	if cfg.MaxRequests < 1 || cfg.Window < time.Second {
		return nil, fmt.Errorf("%w: %d requests per %s", ErrInvalidLimit, cfg.MaxRequests, cfg.Window)
	}
	whitelist, err := NewWhitelist(cfg.Whitelist)
	if err != nil {
		return nil, err
	}

	key := []byte(cfg.HashKey)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}

	l := &Limiter{
		store:     store,
		max:       cfg.MaxRequests,
		window:    cfg.Window,
		whitelist: whitelist,
		hashKey:   key,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Key returns the storage key of ip: a hex keyed BLAKE2b-256 hash.
func (l *Limiter) Key(ip string) string {
	h, err := blake2b.New256(l.hashKey)
	if err != nil {
		// Unreachable: New bounds the key length.
		sum := blake2b.Sum256([]byte(ip))
		return hex.EncodeToString(sum[:])
	}
	_, _ = h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

// Check counts a request from ip against its window.
func (l *Limiter) Check(ctx context.Context, ip string) (Result, error) {
	if l.whitelist.Contains(ip) {
		return Result{Allowed: true, Remaining: -1, Whitelisted: true, IP: ip}, nil
	}

	now := l.now()
	nowUnix := now.Unix()
	windowSeconds := int64(l.window / time.Second)
	windowStart := nowUnix - windowSeconds

	var res Result
	err := l.store.Update(ctx, l.Key(ip), func(w *Window) bool {
		kept := w.Requests[:0]
		for _, ts := range w.Requests {
			if ts > windowStart {
				kept = append(kept, ts)
			}
		}
		w.Requests = kept

		count := len(w.Requests)
		oldest := nowUnix
		for _, ts := range w.Requests {
			oldest = min(oldest, ts)
		}
		reset := oldest + windowSeconds

		if count >= l.max {
			res = Result{
				Allowed:    false,
				Remaining:  0,
				Reset:      time.Unix(reset, 0),
				RetryAfter: time.Duration(reset-nowUnix) * time.Second,
				IP:         ip,
			}
			return false
		}

		w.IP = ip
		w.Requests = append(w.Requests, nowUnix)
		w.LastRequest = nowUnix
		res = Result{
			Allowed:   true,
			Remaining: max(0, l.max-count) - 1,
			Reset:     time.Unix(reset, 0),
			IP:        ip,
		}
		return true
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to update rate limit window: %w", err)
	}

	if !res.Allowed {
		l.logger.Debug("rate limit exceeded", "retry_after", res.RetryAfter)
	}
	return res, nil
}

// Cleanup deletes windows idle for longer than the window length and
// returns how many were deleted.
func (l *Limiter) Cleanup(ctx context.Context) (int, error) {
	before := l.now().Add(-l.window).Unix()
	n, err := l.store.DeleteIdle(ctx, before)
	if err != nil {
		return n, fmt.Errorf("failed to clean up rate limit windows: %w", err)
	}
	return n, nil
}

// clientIPHeaders are consulted in order before the peer address.
var clientIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

// ClientIP returns the client address of r: the first valid value of
// CF-Connecting-IP, X-Real-IP, X-Forwarded-For (first hop) or the peer
// address, and "0.0.0.0" when none is valid.
func ClientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if first, _, found := strings.Cut(value, ","); found {
			value = first
		}
		if addr, err := netip.ParseAddr(strings.TrimSpace(value)); err == nil {
			return addr.String()
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String()
	}
	return "0.0.0.0"
}
