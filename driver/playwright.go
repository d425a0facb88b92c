package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/scrapjob/crawler/extract"
)

// BrowserDriver drives one playwright page. One instance serves one
// adapter run and is never shared.
type BrowserDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page

	opts      Options
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// OpenBrowser launches a browser session configured by opts. Failures
// here are session-fatal: the caller marks the adapter failed and moves
// on.
func OpenBrowser(ctx context.Context, opts Options, logger *slog.Logger) (*BrowserDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, &SessionFatalError{Err: fmt.Errorf("start playwright: %w", err)}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, &SessionFatalError{Err: fmt.Errorf("launch browser: %w", err)}
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		contextOpts.Viewport = &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		}
	}
	if len(opts.Headers) > 0 {
		contextOpts.ExtraHttpHeaders = opts.Headers
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, &SessionFatalError{Err: fmt.Errorf("new browser context: %w", err)}
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return nil, &SessionFatalError{Err: fmt.Errorf("new page: %w", err)}
	}

	return &BrowserDriver{
		pw:      pw,
		browser: browser,
		bctx:    bctx,
		page:    page,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Navigate loads url and waits for waitSelector, retrying per the
// configured policy. A diagnostic screenshot is written after the final
// failure.
func (d *BrowserDriver) Navigate(ctx context.Context, url, waitSelector string) error {
	timeout := d.opts.timeoutOrDefault()

	attempt := func() error {
		if _, err := d.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		}); err != nil {
			return &NavigationTimeoutError{URL: url, Err: err}
		}
		if waitSelector == "" {
			return nil
		}
		return d.waitLocator(waitSelector, timeout)
	}

	policy := d.opts.Retry
	policy.Retryable = Retryable
	if err := policy.Do(ctx, attempt); err != nil {
		d.capture("navigate")
		return err
	}
	return nil
}

// WaitFor blocks until selector appears.
func (d *BrowserDriver) WaitFor(ctx context.Context, selector string) error {
	if err := d.waitLocator(selector, d.opts.timeoutOrDefault()); err != nil {
		d.capture("wait")
		return err
	}
	return nil
}

// Click clicks the first match of selector, reporting false when the
// page has no such element.
func (d *BrowserDriver) Click(ctx context.Context, selector string) (bool, error) {
	count, err := d.page.Locator(selector).Count()
	if err != nil {
		return false, fmt.Errorf("count %q: %w", selector, err)
	}
	if count == 0 {
		return false, nil
	}
	if err := d.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(d.opts.timeoutOrDefault().Milliseconds())),
	}); err != nil {
		return false, fmt.Errorf("click %q: %w", selector, err)
	}
	return true, nil
}

// HumanScroll wheels down in randomized steps, then jumps to the
// bottom to flush any remaining lazy loads. The step cap guarantees
// termination.
func (d *BrowserDriver) HumanScroll(ctx context.Context) error {
	steps := d.opts.scrollStepsOrDefault()
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.page.Mouse().Wheel(0, float64(300+rand.Intn(400))); err != nil {
			return fmt.Errorf("scroll wheel: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(200+rand.Intn(400)) * time.Millisecond):
		}
	}
	if _, err := d.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)"); err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

// Snapshot serializes the rendered page for extraction.
func (d *BrowserDriver) Snapshot(ctx context.Context) (*extract.Snapshot, error) {
	html, err := d.page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}
	return extract.NewSnapshot(html, d.page.URL())
}

// CurrentURL reports the page address.
func (d *BrowserDriver) CurrentURL() string {
	return d.page.URL()
}

// Close tears the whole session down. Idempotent.
func (d *BrowserDriver) Close() error {
	d.closeOnce.Do(func() {
		var errs []error
		if err := d.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		if err := d.bctx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}

func (d *BrowserDriver) waitLocator(selector string, timeout time.Duration) error {
	err := d.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return &SelectorNotFoundError{Selector: selector, Err: err}
	}
	return nil
}

// capture writes a full-page screenshot for postmortem when a
// navigation or wait fails. Best effort: capture problems are logged,
// never propagated.
func (d *BrowserDriver) capture(phase string) {
	if d.opts.ScreenshotDir == "" {
		return
	}
	if err := os.MkdirAll(d.opts.ScreenshotDir, 0o755); err != nil {
		d.logger.Debug("screenshot dir", slog.Any("error", err))
		return
	}
	name := fmt.Sprintf("%s_%s.png", phase, time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(d.opts.ScreenshotDir, name)
	if _, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		d.logger.Debug("screenshot failed", slog.Any("error", err))
		return
	}
	d.logger.Info("diagnostic screenshot saved", slog.String("path", path))
}
