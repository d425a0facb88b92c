package driver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/scrapjob/crawler/extract"
)

// StaticDriver serves server-rendered sources over plain HTTP. It
// implements the same capability surface as the browser backend so the
// controller and extraction engine cannot tell them apart. Scrolling is
// a no-op: static pages have nothing to lazy-load.
type StaticDriver struct {
	collector *colly.Collector
	opts      Options
	logger    *slog.Logger

	snap       *extract.Snapshot
	currentURL string
}

// OpenStatic builds an HTTP-backed session.
func OpenStatic(opts Options, logger *slog.Logger) (*StaticDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	collectorOpts := []colly.CollectorOption{colly.AllowURLRevisit()}
	if opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(opts.UserAgent))
	}
	collector := colly.NewCollector(collectorOpts...)
	collector.SetRequestTimeout(opts.timeoutOrDefault())
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.timeoutOrDefault(),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	d := &StaticDriver{
		collector: collector,
		opts:      opts,
		logger:    logger,
	}

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range opts.Headers {
			r.Headers.Set(key, value)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		snap, err := extract.NewSnapshot(string(r.Body), r.Request.URL.String())
		if err != nil {
			d.logger.Debug("snapshot parse failed", slog.Any("error", err))
			return
		}
		d.snap = snap
		d.currentURL = r.Request.URL.String()
	})

	return d, nil
}

// WithTransport swaps the HTTP transport. Tests install a mock here.
func (d *StaticDriver) WithTransport(rt http.RoundTripper) {
	d.collector.WithTransport(rt)
}

// Navigate fetches url with the retry policy applied. For a static
// page there is nothing to wait on: waitSelector absent from the
// response body means the selector is not coming.
func (d *StaticDriver) Navigate(ctx context.Context, url, waitSelector string) error {
	attempt := func() error {
		if err := d.fetch(url); err != nil {
			return err
		}
		if waitSelector != "" && !d.snap.Has(waitSelector) {
			return &SelectorNotFoundError{Selector: waitSelector, Err: fmt.Errorf("absent from %s", url)}
		}
		return nil
	}

	policy := d.opts.Retry
	policy.Retryable = Retryable
	if err := policy.Do(ctx, attempt); err != nil {
		d.capture("navigate")
		return err
	}
	return nil
}

// WaitFor checks the already-fetched page for selector.
func (d *StaticDriver) WaitFor(ctx context.Context, selector string) error {
	if d.snap == nil || !d.snap.Has(selector) {
		d.capture("wait")
		return &SelectorNotFoundError{Selector: selector, Err: fmt.Errorf("absent from %s", d.currentURL)}
	}
	return nil
}

// Click follows the href of the first match. Controls without an href
// cannot be activated without a browser, so they count as absent.
func (d *StaticDriver) Click(ctx context.Context, selector string) (bool, error) {
	if d.snap == nil {
		return false, fmt.Errorf("click before first navigation")
	}
	href := d.snap.Root().Link(selector)
	if href == "" {
		return false, nil
	}
	if err := d.fetch(href); err != nil {
		return false, err
	}
	return true, nil
}

// HumanScroll is a no-op for static pages.
func (d *StaticDriver) HumanScroll(ctx context.Context) error {
	return nil
}

// Snapshot returns the last fetched page.
func (d *StaticDriver) Snapshot(ctx context.Context) (*extract.Snapshot, error) {
	if d.snap == nil {
		return nil, fmt.Errorf("snapshot before first navigation")
	}
	return d.snap, nil
}

// CurrentURL reports the last fetched address.
func (d *StaticDriver) CurrentURL() string {
	return d.currentURL
}

// Close releases nothing for the HTTP backend but keeps the contract.
func (d *StaticDriver) Close() error {
	return nil
}

func (d *StaticDriver) fetch(url string) error {
	if err := d.collector.Visit(url); err != nil {
		return &NavigationTimeoutError{URL: url, Err: err}
	}
	if d.snap == nil {
		return &NavigationTimeoutError{URL: url, Err: fmt.Errorf("empty response")}
	}
	return nil
}

// capture dumps the last page source for postmortem, the static
// equivalent of the browser backend's screenshot.
func (d *StaticDriver) capture(phase string) {
	if d.opts.ScreenshotDir == "" || d.snap == nil {
		return
	}
	if err := os.MkdirAll(d.opts.ScreenshotDir, 0o755); err != nil {
		return
	}
	name := fmt.Sprintf("%s_%s.html", phase, time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(d.opts.ScreenshotDir, name)
	html, err := d.snap.HTML()
	if err != nil {
		return
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return
	}
	d.logger.Info("diagnostic page source saved", slog.String("path", path))
}
