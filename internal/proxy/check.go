package proxy

import (
	"context"
	"net"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckResult is the reachability of one endpoint.
type CheckResult struct {
	Endpoint *url.URL
	Latency  time.Duration
	Err      error
}

// Reachable reports whether the TCP connect succeeded.
func (r CheckResult) Reachable() bool {
	return r.Err == nil
}

// Check dials every endpoint of the pool over TCP, at most concurrency at
// a time, and returns results in pool order. It only proves the port is
// open; it does not send a proxied request.
func (p *Pool) Check(ctx context.Context, timeout time.Duration, concurrency int) []CheckResult {
	endpoints := p.Endpoints()
	results := make([]CheckResult, len(endpoints))
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, ep := range endpoints {
		g.Go(func() error {
			dialer := &net.Dialer{Timeout: timeout}
			start := time.Now()
			conn, err := dialer.DialContext(gctx, "tcp", Display(ep))
			results[i] = CheckResult{Endpoint: ep, Latency: time.Since(start), Err: err}
			if conn != nil {
				_ = conn.Close()
			}
			// Unreachable endpoints are reported, not propagated.
			return nil
		})
	}
	_ = g.Wait()

	return results
}
