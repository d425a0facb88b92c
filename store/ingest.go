package store

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scrapjob/crawler/models"
	"github.com/scrapjob/crawler/retry"
)

// seenCacheSize bounds the within-run dedup cache across all sources.
const seenCacheSize = 65536

// Result summarizes one source's ingestion. Unwritten carries the
// listings whose writes still failed after retries, for manual replay.
type Result struct {
	Written    int
	Duplicates int
	Unwritten  []*models.JobListing
	Errs       []error
}

// Ingester writes normalized listings through a Sink with retries and
// a within-run dedup cache. One Ingester serves a whole run; the cache
// keeps concurrent sources from writing the same identity twice.
type Ingester struct {
	sink   Sink
	policy retry.Policy
	seen   *lru.Cache[string, struct{}]
	logger *slog.Logger
	now    func() time.Time
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

func WithLogger(logger *slog.Logger) IngesterOption {
	return func(i *Ingester) { i.logger = logger }
}

// WithClock overrides the metadata timestamp source.
func WithClock(now func() time.Time) IngesterOption {
	return func(i *Ingester) { i.now = now }
}

func NewIngester(sink Sink, policy retry.Policy, opts ...IngesterOption) *Ingester {
	seen, _ := lru.New[string, struct{}](seenCacheSize)
	ing := &Ingester{
		sink:   sink,
		policy: policy,
		seen:   seen,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest upserts the listings for one source and then replaces the
// source's run-metadata snapshot with the written count. A failed write
// never stops the remaining listings.
func (i *Ingester) Ingest(ctx context.Context, source string, listings []*models.JobListing) Result {
	var res Result
	for _, listing := range listings {
		key := listing.Key()
		if _, dup := i.seen.Get(key); dup {
			res.Duplicates++
			continue
		}

		err := i.policy.Do(ctx, func() error {
			return i.sink.Upsert(ctx, listing)
		})
		if err != nil {
			res.Unwritten = append(res.Unwritten, listing)
			res.Errs = append(res.Errs, err)
			i.logger.Warn("listing not persisted",
				slog.String("source", source),
				slog.String("apply_link", listing.ApplyLink),
				slog.Any("error", err),
			)
			continue
		}
		i.seen.Add(key, struct{}{})
		res.Written++
	}

	if res.Written > 0 {
		meta := models.RunMetadata{
			Source:      source,
			TotalJobs:   res.Written,
			LastUpdated: i.now(),
		}
		err := i.policy.Do(ctx, func() error {
			return i.sink.RecordRunMetadata(ctx, meta)
		})
		if err != nil {
			res.Errs = append(res.Errs, err)
			i.logger.Warn("run metadata not persisted",
				slog.String("source", source),
				slog.Any("error", err),
			)
		}
	}
	return res
}
