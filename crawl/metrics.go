package crawl

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scrapjob/crawler/driver"
	"github.com/scrapjob/crawler/normalize"
	"github.com/scrapjob/crawler/store"
)

// Metrics bundles Prometheus collectors for the crawl pipeline.
type Metrics struct {
	Registry             *prometheus.Registry
	PagesVisitedTotal    *prometheus.CounterVec
	ListingsScrapedTotal *prometheus.CounterVec
	ListingsWrittenTotal *prometheus.CounterVec
	RetriesTotal         prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
	AdapterDuration      *prometheus.HistogramVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_pages_visited_total",
			Help: "Total result pages visited, by source.",
		},
		[]string{"source"},
	)
	scraped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_listings_scraped_total",
			Help: "Total raw listings extracted, by source.",
		},
		[]string{"source"},
	)
	written := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_listings_written_total",
			Help: "Total listings upserted into the store, by source.",
		},
		[]string{"source"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Total number of crawl errors by type.",
		},
		[]string{"error_type"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_adapter_duration_seconds",
			Help:    "Wall-clock duration of one adapter run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"source"},
	)

	registry.MustRegister(pages, scraped, written, retries, errorsTotal, duration)

	return &Metrics{
		Registry:             registry,
		PagesVisitedTotal:    pages,
		ListingsScrapedTotal: scraped,
		ListingsWrittenTotal: written,
		RetriesTotal:         retries,
		ErrorsTotal:          errorsTotal,
		AdapterDuration:      duration,
	}
}

// AddPages adds to the pages visited counter for a source.
func (m *Metrics) AddPages(source string, n int) {
	if m == nil {
		return
	}
	m.PagesVisitedTotal.WithLabelValues(source).Add(float64(n))
}

// AddScraped adds to the raw listings counter for a source.
func (m *Metrics) AddScraped(source string, n int) {
	if m == nil {
		return
	}
	m.ListingsScrapedTotal.WithLabelValues(source).Add(float64(n))
}

// AddWritten adds to the written listings counter for a source.
func (m *Metrics) AddWritten(source string, n int) {
	if m == nil {
		return
	}
	m.ListingsWrittenTotal.WithLabelValues(source).Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(err error) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorTypeLabel(err)).Inc()
}

// ObserveAdapterDuration records one adapter run's duration.
func (m *Metrics) ObserveAdapterDuration(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.AdapterDuration.WithLabelValues(source).Observe(d.Seconds())
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var navTimeout *driver.NavigationTimeoutError
	if errors.As(err, &navTimeout) {
		return "navigation_timeout"
	}
	var notFound *driver.SelectorNotFoundError
	if errors.As(err, &notFound) {
		return "selector_not_found"
	}
	var fatal *driver.SessionFatalError
	if errors.As(err, &fatal) {
		return "session_fatal"
	}
	var mismatch *normalize.ExtractionMismatchError
	if errors.As(err, &mismatch) {
		return "extraction_mismatch"
	}
	var write *store.StoreWriteError
	if errors.As(err, &write) {
		return "store_write"
	}
	return "other"
}
