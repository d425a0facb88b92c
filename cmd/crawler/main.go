package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/scrapjob/crawler/adapter"
	"github.com/scrapjob/crawler/config"
	"github.com/scrapjob/crawler/crawl"
	"github.com/scrapjob/crawler/driver"
	"github.com/scrapjob/crawler/models"
	"github.com/scrapjob/crawler/retry"
	"github.com/scrapjob/crawler/seencache"
	"github.com/scrapjob/crawler/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()

	adaptersFile := flag.String("adapters", cfg.AdaptersFile, "Adapter definitions YAML (empty = built-in set)")
	sources := flag.String("sources", strings.Join(cfg.Sources, ","), "Comma-separated source names to run (empty = all)")
	dryRun := flag.Bool("dry-run", cfg.DryRun, "Write JSONL to -output instead of the database")
	outputFile := flag.String("output", cfg.OutputFile, "Output file path for dry runs")
	parallelism := flag.Int("parallel", cfg.Parallelism, "Number of concurrent crawl sessions")
	deadline := flag.Duration("deadline", cfg.RunDeadline, "Global deadline for one full run")
	headless := flag.Bool("headless", cfg.Headless, "Run browser sessions headless")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	schedule := flag.String("schedule", cfg.Schedule, "Cron spec for recurring runs (e.g. @every 6h); empty = run once")
	verbose := flag.Bool("v", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	cfg.AdaptersFile = *adaptersFile
	cfg.Sources = splitSources(*sources)
	cfg.DryRun = *dryRun
	cfg.OutputFile = *outputFile
	cfg.Parallelism = *parallelism
	cfg.RunDeadline = *deadline
	cfg.Headless = *headless
	cfg.MetricsAddr = *metricsAddr
	cfg.Schedule = *schedule
	cfg.Verbose = *verbose

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	setLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	adapters, err := loadAdapters(cfg)
	if err != nil {
		slog.Error("loading adapters", slog.Any("error", err))
		os.Exit(1)
	}
	if len(adapters) == 0 {
		slog.Error("no adapters selected", slog.Any("sources", cfg.Sources))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := openSink(ctx, cfg)
	if err != nil {
		slog.Error("opening sink", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Error("close sink", slog.Any("error", err))
		}
	}()

	seen, err := openSeenCache(ctx, cfg)
	if err != nil {
		slog.Error("opening seen cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer seen.Close()

	metrics := crawl.NewMetrics()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	orchestrator := crawl.New(sink, driverFactory(cfg, metrics, logger),
		crawl.WithLogger(logger),
		crawl.WithMetrics(metrics),
		crawl.WithSeenCache(seen),
		crawl.WithParallelism(cfg.Parallelism),
		crawl.WithStoreRetry(storeRetryPolicy(cfg, metrics)),
	)

	runOnce := func() *models.RunReport {
		runCtx, cancel := context.WithTimeout(ctx, cfg.RunDeadline)
		defer cancel()
		report := orchestrator.RunAll(runCtx, adapters)
		printSummary(report)
		return report
	}

	var exitCode int
	if cfg.Schedule != "" {
		// A run slower than the tick interval is skipped, never
		// overlapped: the sink and metrics registry are shared.
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		if _, err := c.AddFunc(cfg.Schedule, func() { runOnce() }); err != nil {
			slog.Error("invalid schedule", slog.String("spec", cfg.Schedule), slog.Any("error", err))
			os.Exit(1)
		}
		c.Start()
		slog.Info("scheduler started", slog.String("spec", cfg.Schedule))

		// Populate immediately, then follow the schedule.
		runOnce()
		<-ctx.Done()
		slog.Info("shutdown signal received")
		<-c.Stop().Done()
	} else {
		report := runOnce()
		if report.TotalWritten() == 0 && report.Failed() {
			exitCode = 1
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if exitCode != 0 {
		// os.Exit skips the deferred closes; flush the sink first.
		if err := sink.Close(); err != nil {
			slog.Error("close sink", slog.Any("error", err))
		}
		seen.Close()
		os.Exit(exitCode)
	}
}

func loadAdapters(cfg *config.Config) ([]adapter.Adapter, error) {
	adapters := adapter.Defaults()
	if cfg.AdaptersFile != "" {
		loaded, err := adapter.Load(cfg.AdaptersFile)
		if err != nil {
			return nil, err
		}
		adapters = loaded
	}
	return adapter.Filter(adapters, cfg.Sources), nil
}

func openSink(ctx context.Context, cfg *config.Config) (store.Sink, error) {
	if cfg.DryRun {
		if dir := filepath.Dir(cfg.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create output dir: %w", err)
			}
		}
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return nil, fmt.Errorf("create output file: %w", err)
		}
		slog.Info("dry run: writing JSONL", slog.String("path", cfg.OutputFile))
		return store.NewJSONL(f), nil
	}
	return store.NewPostgres(ctx, cfg.DatabaseURL)
}

func openSeenCache(ctx context.Context, cfg *config.Config) (seencache.Cache, error) {
	if cfg.RedisURL == "" {
		return seencache.Noop{}, nil
	}
	return seencache.NewRedis(ctx, cfg.RedisURL, cfg.SeenTTL)
}

func driverFactory(cfg *config.Config, metrics *crawl.Metrics, logger *slog.Logger) crawl.DriverFactory {
	policy := retry.Policy{
		MaxAttempts: cfg.MaxRetries + 1,
		Backoff:     cfg.RetryBackoff,
		BackoffMax:  cfg.RetryBackoffMax,
		Jitter:      cfg.RetryJitter,
		Retryable:   driver.Retryable,
		OnRetry:     func(int, error) { metrics.IncRetries() },
	}

	return func(ctx context.Context, ad adapter.Adapter) (driver.Driver, error) {
		opts := driver.Options{
			UserAgent:     cfg.UserAgent,
			Headers:       ad.Headers,
			Headless:      cfg.Headless,
			Timeout:       cfg.NavigationTimeout,
			Retry:         policy,
			ScrollSteps:   cfg.ScrollSteps,
			ScreenshotDir: cfg.ScreenshotDir,
		}
		if ad.Engine == adapter.EngineBrowser {
			return driver.OpenBrowser(ctx, opts, logger)
		}
		return driver.OpenStatic(opts, logger)
	}
}

func storeRetryPolicy(cfg *config.Config, metrics *crawl.Metrics) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxRetries + 1,
		Backoff:     cfg.RetryBackoff,
		BackoffMax:  cfg.RetryBackoffMax,
		Jitter:      cfg.RetryJitter,
		OnRetry:     func(int, error) { metrics.IncRetries() },
	}
}

func printSummary(report *models.RunReport) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Run %s complete\n", report.ID)
	for _, out := range report.Outcomes {
		fmt.Printf("  %-12s %-9s pages=%-3d written=%-4d dropped=%-3d duplicates=%d\n",
			out.Source, out.Status, out.Pages, out.Count, out.Dropped, out.Duplicates)
		for _, msg := range out.Errors {
			fmt.Printf("    error: %s\n", msg)
		}
		if len(out.Unwritten) > 0 {
			fmt.Printf("    unwritten: %d records pending replay\n", len(out.Unwritten))
		}
	}
	fmt.Printf("  Total written: %d\n", report.TotalWritten())
	fmt.Printf("  Duration:      %v\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Println(separator)
}

func splitSources(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
