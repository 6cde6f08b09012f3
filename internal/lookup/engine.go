package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/nao1215/taxlookup/internal/fingerprint"
	"github.com/nao1215/taxlookup/internal/model"
	"github.com/nao1215/taxlookup/internal/pipeline"
	"github.com/nao1215/taxlookup/internal/proxy"
	"github.com/nao1215/taxlookup/internal/transport"
)

// Options are the lookup settings usually taken from config.Config.
type Options struct {
	BaseURL        string
	MaxAttempts    int
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxBodySize    int64

	// Pauses are the delays inside an attempt.
	Pauses pipeline.Pauses
	// Backoff is the delay between failed attempts.
	Backoff pipeline.Range
}

// DefaultOptions returns the settings of a browsing user: three attempts,
// jittered pauses and a 1-3 s backoff.
func DefaultOptions() Options {
	return Options{
		BaseURL:        "https://masothue.com",
		MaxAttempts:    3,
		Timeout:        120 * time.Second,
		ConnectTimeout: 30 * time.Second,
		MaxBodySize:    model.MaxPageSize,
		Pauses:         pipeline.DefaultPauses(),
		Backoff:        pipeline.Range{Min: time.Second, Max: 3 * time.Second},
	}
}

// BreakerSettings configures the circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures exhausted lookups open the breaker.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
}

// Engine runs lookups against the registry.
type Engine struct {
	opts      Options
	pool      *proxy.Pool
	generator *fingerprint.Generator
	pipeline  *pipeline.Pipeline
	jitter    *pipeline.Jitter
	breaker   *gobreaker.CircuitBreaker[*model.CompanyRecord]
	logger    *slog.Logger
	now       func() time.Time

	clientFactory transport.Factory
	breakerConfig *BreakerSettings
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithGenerator sets the fingerprint generator.
func WithGenerator(g *fingerprint.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.generator = g
		}
	}
}

// WithClientFactory replaces transport.NewClient.
func WithClientFactory(f transport.Factory) Option {
	return func(e *Engine) {
		e.clientFactory = f
	}
}

// WithJitter sets the source of pause and backoff durations.
func WithJitter(j *pipeline.Jitter) Option {
	return func(e *Engine) {
		if j != nil {
			e.jitter = j
		}
	}
}

// WithClock sets the clock of the diagnostic trail.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithBreaker enables the circuit breaker.
func WithBreaker(s BreakerSettings) Option {
	return func(e *Engine) {
		e.breakerConfig = &s
	}
}

// New builds an Engine. A nil pool connects directly.
func New(opts Options, pool *proxy.Pool, fns ...Option) (*Engine, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q", ErrInvalidOptions, opts.BaseURL)
	}
	if opts.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidOptions, opts.MaxAttempts)
	}
	if pool == nil {
		pool = proxy.NewPool(nil)
	}

	e := &Engine{
		opts:   opts,
		pool:   pool,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, fn := range fns {
		fn(e)
	}
	if e.generator == nil {
		e.generator = fingerprint.NewGenerator()
	}
	if e.jitter == nil {
		e.jitter = pipeline.NewJitter(nil)
	}

	e.pipeline = pipeline.NewAttemptPipeline(pipeline.Settings{
		ClientFactory:  e.clientFactory,
		Timeout:        opts.Timeout,
		ConnectTimeout: opts.ConnectTimeout,
		MaxBodySize:    opts.MaxBodySize,
		Pauses:         opts.Pauses,
		Jitter:         e.jitter,
		Logger:         e.logger,
	})

	if e.breakerConfig != nil {
		e.breaker = newBreaker(*e.breakerConfig, e.logger)
	}
	return e, nil
}

func newBreaker(s BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker[*model.CompanyRecord] {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}
	return gobreaker.NewCircuitBreaker[*model.CompanyRecord](gobreaker.Settings{
		Name:        "registry",
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Lookup resolves query into a record. It never returns nil and is safe
// for concurrent use.
func (e *Engine) Lookup(ctx context.Context, query string) *model.CompanyRecord {
	id := uuid.NewString()
	q := model.ClassifyQuery(query)

	e.logger.Info("lookup started", "lookup_id", id, "query", q.Raw(), "kind", q.Kind().String())

	var rec *model.CompanyRecord
	if e.breaker == nil {
		rec = e.lookup(ctx, q)
	} else {
		var err error
		rec, err = e.breaker.Execute(func() (*model.CompanyRecord, error) {
			r := e.lookup(ctx, q)
			if r.FailureKind == model.FailureExhausted {
				return r, errExhausted
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rec = e.circuitOpen(q, err)
		}
	}

	rec.LookupID = id
	e.logger.Info("lookup finished",
		"lookup_id", id,
		"query", q.Raw(),
		"attempts", rec.Attempts,
		"kind", rec.FailureKind,
	)
	return rec
}

// lookup runs the attempts of one lookup.
func (e *Engine) lookup(ctx context.Context, q model.Query) *model.CompanyRecord {
	pool := e.pool.Clone()
	total := e.opts.MaxAttempts

	logs := []string{fmt.Sprintf("Loaded %d proxy(ies) from %s", pool.Len(), pool.Source())}
	var (
		attempts int
		success  *model.CompanyRecord
		last     *model.CompanyRecord
	)

	err := retry.Do(
		func() error {
			attempts++
			logs = append(logs, fmt.Sprintf("\n=== Attempt %d/%d ===", attempts, total))

			rec, err := e.attempt(ctx, q, pool, attempts)
			if err == nil {
				rec.Logs = append(append([]string(nil), logs...), rec.Logs...)
				success = rec
				return nil
			}
			logs = append(logs, rec.Logs...)
			last = rec
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(total)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return model.FailureOf(err) != model.FailureCancelled
		}),
		retry.DelayType(func(_ uint, _ error, _ *retry.Config) time.Duration {
			return e.jitter.Pick(e.opts.Backoff)
		}),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Debug("attempt failed", "attempt", n+1, "kind", model.FailureOf(err), "error", err)
			if int(n)+1 < total && model.FailureOf(err) != model.FailureCancelled {
				logs = append(logs, fmt.Sprintf("⚠️ Attempt %d failed, retrying with different proxy + fingerprint...", n+1))
			}
		}),
	)

	switch {
	case success != nil:
		return success
	case ctx.Err() != nil || model.FailureOf(err) == model.FailureCancelled:
		return e.cancelled(q, attempts, logs, last, ctx.Err())
	default:
		return e.exhausted(q, logs)
	}
}

// attempt runs one attempt and returns its record.
func (e *Engine) attempt(ctx context.Context, q model.Query, pool *proxy.Pool, number int) (*model.CompanyRecord, error) {
	a := pipeline.NewAttempt(q, number, e.opts.MaxAttempts, model.NewTrail(e.now))
	a.BaseURL = e.opts.BaseURL
	a.Proxy, _ = pool.Next()
	a.Fingerprint = e.generator.Generate()

	err := e.pipeline.Execute(ctx, a)
	if a.Session != nil {
		a.Session.Client().CloseIdleConnections()
	}

	rec := a.Record
	rec.Logs = a.Trail.Logs
	rec.Steps = a.Trail.Steps
	rec.Attempts = number
	return rec, err
}

// exhausted is the record of a lookup whose attempts all failed.
func (e *Engine) exhausted(q model.Query, logs []string) *model.CompanyRecord {
	n := e.opts.MaxAttempts
	return &model.CompanyRecord{
		TaxCode:     q.Raw(),
		Error:       fmt.Sprintf("Đã cố gắng %d lần nhưng không tìm thấy kết quả, vui lòng kiểm tra lại thông tin bạn nhập.", n),
		FailureKind: model.FailureExhausted,
		Attempts:    n,
		Logs:        logs,
		Steps: []model.StepRecord{{
			Name:      "All Attempts Failed",
			Status:    model.StepError,
			Message:   fmt.Sprintf("Tried %d attempts", n),
			Timestamp: e.now().UnixMilli(),
		}},
	}
}

// cancelled is the record of a lookup stopped by its context.
func (e *Engine) cancelled(q model.Query, attempts int, logs []string, last *model.CompanyRecord, cause error) *model.CompanyRecord {
	if cause == nil {
		cause = context.Canceled
	}
	rec := &model.CompanyRecord{
		TaxCode:     q.Raw(),
		Error:       "lookup cancelled: " + cause.Error(),
		FailureKind: model.FailureCancelled,
		Attempts:    attempts,
		Logs:        logs,
	}
	if last != nil {
		rec.Steps = last.Steps
		rec.Proxy = last.Proxy
		rec.Browser = last.Browser
	}
	return rec
}

// circuitOpen is the record of a lookup rejected by the breaker.
func (e *Engine) circuitOpen(q model.Query, cause error) *model.CompanyRecord {
	msg := "Registry lookups are paused after repeated failures, try again later"
	return &model.CompanyRecord{
		TaxCode:     q.Raw(),
		Error:       msg,
		FailureKind: model.FailureCircuitOpen,
		Logs:        []string{fmt.Sprintf("Circuit breaker rejected the lookup: %v", cause)},
		Steps: []model.StepRecord{{
			Name:      "Circuit Open",
			Status:    model.StepError,
			Message:   msg,
			Timestamp: e.now().UnixMilli(),
		}},
	}
}
