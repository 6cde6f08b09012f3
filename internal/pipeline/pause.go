package pipeline

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Range is an inclusive duration interval.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Pauses are the human-like delays between requests of an attempt.
type Pauses struct {
	// AfterHomepage follows the session bootstrap.
	AfterHomepage Range
	// BeforeDetail precedes following the detail link.
	BeforeDetail Range
}

// DefaultPauses returns the delays of a browsing user.
func DefaultPauses() Pauses {
	return Pauses{
		AfterHomepage: Range{Min: 300 * time.Millisecond, Max: 800 * time.Millisecond},
		BeforeDetail:  Range{Min: 200 * time.Millisecond, Max: 500 * time.Millisecond},
	}
}

// Jitter picks durations uniformly from ranges. It is safe for concurrent use.
type Jitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitter returns a Jitter using rng, or a randomly seeded source when nil.
func NewJitter(rng *rand.Rand) *Jitter {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // timing jitter
	}
	return &Jitter{rng: rng}
}

// Pick returns a duration in r.
func (j *Jitter) Pick(r Range) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return r.Min + time.Duration(j.rng.Int64N(int64(r.Max-r.Min)+1))
}

// Sleep waits a duration picked from r, returning early with the
// context's error when ctx is done.
func (j *Jitter) Sleep(ctx context.Context, r Range) error {
	return Sleep(ctx, j.Pick(r))
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
