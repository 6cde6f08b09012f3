package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/taxlookup/internal/model"
)

// LookupFunc resolves one query into a record. It never fails; failures
// are carried by the record.
type LookupFunc func(ctx context.Context, query string) *model.CompanyRecord

// BatchProcessor runs lookups for several queries with bounded
// concurrency, pacing the start of each lookup.
type BatchProcessor struct {
	lookup LookupFunc

	// concurrency is the maximum number of concurrent lookups.
	concurrency int

	// limiter paces lookup starts; nil means no pacing.
	limiter *rate.Limiter

	logger *slog.Logger

	results []*model.CompanyRecord
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent lookups.
// Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithInterval makes lookups start at least d apart.
func WithInterval(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if d > 0 {
			b.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(lookup LookupFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		lookup:      lookup,
		concurrency: 1,
		results:     make([]*model.CompanyRecord, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch looks up every query and returns the records in query
// order. The error is non-nil only when ctx ended the batch; records of
// queries that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, queries []string) ([]*model.CompanyRecord, error) {
	bp.logger.Info("starting batch processing",
		"total_queries", len(queries),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*model.CompanyRecord, len(queries))

	err := bp.run(ctx, queries, func(record *model.CompanyRecord, index int) {
		bp.mu.Lock()
		bp.results[index] = record
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_queries", len(queries),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback looks up every query and calls callback with
// each record as soon as it is available. The callback is called from
// the goroutine that ran the lookup.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	queries []string,
	callback func(record *model.CompanyRecord, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_queries", len(queries),
		"concurrency", bp.concurrency,
	)
	return bp.run(ctx, queries, callback)
}

func (bp *BatchProcessor) run(
	ctx context.Context,
	queries []string,
	callback func(record *model.CompanyRecord, index int),
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, query := range queries {
		if bp.limiter != nil {
			if err := bp.limiter.Wait(gctx); err != nil {
				break
			}
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			bp.logger.Info("looking up",
				"query", query,
				"index", i+1,
				"total", len(queries),
			)

			record := bp.lookup(gctx, query)
			if !record.Succeeded() {
				bp.logger.Warn("lookup failed",
					"query", query,
					"kind", record.FailureKind,
					"error", record.Error,
				)
			}

			callback(record, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
