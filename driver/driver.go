// Package driver owns the automation session for one adapter run. A
// Driver exposes navigation, waiting, scrolling and snapshot primitives
// behind one interface so the extraction engine stays backend-agnostic.
// Two backends exist: a playwright browser session for JS-rendered
// sites and a colly HTTP fetcher for server-rendered ones.
package driver

import (
	"context"
	"time"

	"github.com/scrapjob/crawler/extract"
	"github.com/scrapjob/crawler/retry"
)

// Driver is the capability surface the pagination controller and the
// extraction engine rely on. Snapshots are plain parsed data; live page
// handles never leave the driver.
type Driver interface {
	// Navigate loads url and, when waitSelector is non-empty, waits for
	// it to appear. Failures after retries surface as
	// *NavigationTimeoutError or *SelectorNotFoundError.
	Navigate(ctx context.Context, url, waitSelector string) error

	// WaitFor blocks until selector appears or the per-operation
	// timeout elapses.
	WaitFor(ctx context.Context, selector string) error

	// Click clicks the first element matching selector. It returns
	// false with a nil error when no such element exists, which callers
	// use to detect a missing "next" affordance.
	Click(ctx context.Context, selector string) (bool, error)

	// HumanScroll performs bounded, randomized scrolling to trigger
	// lazy-loaded content. It always terminates within the configured
	// step cap.
	HumanScroll(ctx context.Context) error

	// Snapshot returns the current page parsed for extraction.
	Snapshot(ctx context.Context) (*extract.Snapshot, error)

	// CurrentURL reports the address of the page the session is on.
	CurrentURL() string

	// Close releases the session. It must run on every exit path and is
	// safe to call more than once.
	Close() error
}

// Options configures a session. All values come from configuration;
// nothing site-specific is hardcoded in the backends.
type Options struct {
	UserAgent      string
	Headers        map[string]string
	ViewportWidth  int
	ViewportHeight int
	Headless       bool

	// Timeout bounds each navigation or wait operation.
	Timeout time.Duration

	// Retry is applied to navigation; wait and click run once.
	Retry retry.Policy

	// ScrollSteps caps HumanScroll iterations.
	ScrollSteps int

	// ScreenshotDir, when set, receives a diagnostic capture on
	// navigate/wait failure for postmortem.
	ScreenshotDir string
}

func (o Options) timeoutOrDefault() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

func (o Options) scrollStepsOrDefault() int {
	if o.ScrollSteps <= 0 {
		return 8
	}
	return o.ScrollSteps
}
