// Package crawl orchestrates the per-source pipeline: one automation
// driver session per adapter, pagination to exhaustion, normalization
// and ingestion of whatever was accumulated, and a run report.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrapjob/crawler/adapter"
	"github.com/scrapjob/crawler/driver"
	"github.com/scrapjob/crawler/models"
	"github.com/scrapjob/crawler/normalize"
	"github.com/scrapjob/crawler/paginate"
	"github.com/scrapjob/crawler/retry"
	"github.com/scrapjob/crawler/seencache"
	"github.com/scrapjob/crawler/store"
)

// DriverFactory opens a fresh driver session for one adapter run. Each
// session is exclusively owned by its run and closed when the run ends.
type DriverFactory func(ctx context.Context, ad adapter.Adapter) (driver.Driver, error)

// Orchestrator runs the configured adapters with bounded parallelism.
// The sink is the only resource shared between adapter runs.
type Orchestrator struct {
	sink        store.Sink
	newDriver   DriverFactory
	seen        seencache.Cache
	metrics     *Metrics
	logger      *slog.Logger
	storeRetry  retry.Policy
	parallelism int
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSeenCache lets the detail pass skip recently enriched listings.
func WithSeenCache(c seencache.Cache) Option {
	return func(o *Orchestrator) { o.seen = c }
}

// WithStoreRetry sets the policy applied to sink writes.
func WithStoreRetry(p retry.Policy) Option {
	return func(o *Orchestrator) { o.storeRetry = p }
}

// WithParallelism bounds the number of concurrent adapter sessions.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) { o.parallelism = n }
}

func New(sink store.Sink, newDriver DriverFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sink:        sink,
		newDriver:   newDriver,
		seen:        seencache.Noop{},
		logger:      slog.Default(),
		parallelism: 2,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.parallelism < 1 {
		o.parallelism = 1
	}
	return o
}

// RunAll crawls every adapter and returns the run report. One
// adapter's failure never prevents the others from running; partial
// results are always ingested.
func (o *Orchestrator) RunAll(ctx context.Context, adapters []adapter.Adapter) *models.RunReport {
	report := &models.RunReport{
		ID:        uuid.NewString(),
		StartedAt: o.now(),
	}

	storeRetry := o.storeRetry
	if storeRetry.OnRetry == nil {
		storeRetry.OnRetry = func(int, error) { o.metrics.IncRetries() }
	}
	ing := store.NewIngester(o.sink, storeRetry, store.WithLogger(o.logger))

	o.logger.Info("run started",
		slog.String("run_id", report.ID),
		slog.Int("adapters", len(adapters)),
		slog.Int("parallelism", o.parallelism),
	)

	outcomes := make([]models.SourceOutcome, len(adapters))
	sem := make(chan struct{}, o.parallelism)
	var wg sync.WaitGroup
	for i, ad := range adapters {
		wg.Add(1)
		go func(i int, ad adapter.Adapter) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = o.runAdapter(ctx, ad, ing)
		}(i, ad)
	}
	wg.Wait()

	report.Outcomes = outcomes
	report.FinishedAt = o.now()
	o.logger.Info("run finished",
		slog.String("run_id", report.ID),
		slog.Int("written", report.TotalWritten()),
		slog.Bool("degraded", report.Failed()),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

// runAdapter owns the full lifecycle of one source: session, crawl,
// normalize, ingest. It never lets a failure escape to siblings.
func (o *Orchestrator) runAdapter(ctx context.Context, ad adapter.Adapter, ing *store.Ingester) (outcome models.SourceOutcome) {
	outcome = models.SourceOutcome{Source: ad.Name, Status: models.StatusFailed}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("panic: %v", r))
			o.logger.Error("adapter run panicked",
				slog.String("source", ad.Name),
				slog.Any("panic", r),
			)
		}
		o.metrics.ObserveAdapterDuration(ad.Name, time.Since(start))
	}()

	logger := o.logger.With(slog.String("source", ad.Name))

	drv, err := o.newDriver(ctx, ad)
	if err != nil {
		o.metrics.IncError(err)
		outcome.Errors = append(outcome.Errors, err.Error())
		logger.Error("session open failed", slog.Any("error", err))
		return outcome
	}
	defer func() {
		if err := drv.Close(); err != nil {
			logger.Warn("session close failed", slog.Any("error", err))
		}
	}()

	skip := func(ctx context.Context, link string) bool {
		return o.seen.Seen(ctx, ad.Name, link)
	}
	session := paginate.New(drv, ad,
		paginate.WithLogger(logger),
		paginate.WithSkipDetail(skip),
	).Run(ctx)

	outcome.Pages = session.PagesVisited
	o.metrics.AddPages(ad.Name, session.PagesVisited)
	o.metrics.AddScraped(ad.Name, len(session.Accumulated))
	if session.Err != nil {
		o.metrics.IncError(session.Err)
		outcome.Errors = append(outcome.Errors, session.Err.Error())
	}

	// Partial ingestion: whatever was accumulated gets normalized and
	// written, even when the session failed part-way.
	now := o.now()
	listings := make([]*models.JobListing, 0, len(session.Accumulated))
	for _, record := range session.Accumulated {
		job, err := normalize.Record(record, ad, now)
		if err != nil {
			outcome.Dropped++
			o.metrics.IncError(err)
			logger.Debug("record dropped", slog.Any("error", err))
			continue
		}
		listings = append(listings, job)
	}
	if outcome.Dropped > 0 {
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("%d records dropped: missing identity", outcome.Dropped))
	}

	res := ing.Ingest(ctx, ad.Name, listings)
	outcome.Count = res.Written
	outcome.Duplicates = res.Duplicates
	outcome.Unwritten = res.Unwritten
	for _, err := range res.Errs {
		o.metrics.IncError(err)
		outcome.Errors = append(outcome.Errors, err.Error())
	}
	o.metrics.AddWritten(ad.Name, res.Written)
	o.markSeen(ctx, ad.Name, listings, res.Unwritten)

	switch {
	case res.Written == 0 && (session.Status == paginate.StatusFailed || len(res.Unwritten) > 0):
		outcome.Status = models.StatusFailed
	case session.Status == paginate.StatusFailed || len(res.Unwritten) > 0:
		outcome.Status = models.StatusPartial
	default:
		outcome.Status = models.StatusSucceeded
	}

	logger.Info("adapter finished",
		slog.String("status", string(outcome.Status)),
		slog.Int("pages", outcome.Pages),
		slog.Int("written", outcome.Count),
		slog.Int("dropped", outcome.Dropped),
		slog.Int("unwritten", len(outcome.Unwritten)),
	)
	return outcome
}

// markSeen records persisted listings in the cross-run cache so the
// next run's detail pass can skip them.
func (o *Orchestrator) markSeen(ctx context.Context, source string, listings, unwritten []*models.JobListing) {
	failed := make(map[*models.JobListing]bool, len(unwritten))
	for _, l := range unwritten {
		failed[l] = true
	}
	for _, l := range listings {
		if failed[l] {
			continue
		}
		if err := o.seen.Mark(ctx, source, l.ApplyLink); err != nil {
			// Best effort: a failed mark only costs a detail re-fetch
			// next run.
			o.logger.Debug("seen cache mark failed",
				slog.String("source", source),
				slog.Any("error", err),
			)
		}
	}
}
