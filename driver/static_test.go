package driver

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/scrapjob/crawler/retry"
)

const searchPage = `<html><body>
<div class="results">
  <div class="card"><a class="title" href="/job/1">Engineer</a></div>
</div>
<a class="next" href="/search?page=2">Next</a>
</body></html>`

const secondPage = `<html><body>
<div class="results">
  <div class="card"><a class="title" href="/job/2">Analyst</a></div>
</div>
</body></html>`

func newStaticDriver(t *testing.T) (*StaticDriver, *httpmock.MockTransport) {
	t.Helper()

	d, err := OpenStatic(Options{
		UserAgent: "test-agent",
		Timeout:   time.Second,
		Retry:     retry.Policy{MaxAttempts: 1},
	}, nil)
	if err != nil {
		t.Fatalf("open static driver: %v", err)
	}

	transport := httpmock.NewMockTransport()
	d.WithTransport(transport)
	return d, transport
}

func TestStaticNavigateAndSnapshot(t *testing.T) {
	d, transport := newStaticDriver(t)
	transport.RegisterResponder("GET", "http://jobs.test/search",
		httpmock.NewStringResponder(200, searchPage))

	if err := d.Navigate(context.Background(), "http://jobs.test/search", ".results"); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	snap, err := d.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Has(".card") {
		t.Fatalf("snapshot missing expected card")
	}
	if got := d.CurrentURL(); got != "http://jobs.test/search" {
		t.Fatalf("current url = %q", got)
	}
}

func TestStaticNavigateMissingWaitSelector(t *testing.T) {
	d, transport := newStaticDriver(t)
	transport.RegisterResponder("GET", "http://jobs.test/search",
		httpmock.NewStringResponder(200, `<html><body>blocked</body></html>`))

	err := d.Navigate(context.Background(), "http://jobs.test/search", ".results")
	var notFound *SelectorNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want SelectorNotFoundError", err)
	}
}

func TestStaticNavigateRetriesTransientFailures(t *testing.T) {
	d, transport := newStaticDriver(t)
	d.opts.Retry = retry.Policy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	transport.RegisterResponder("GET", "http://jobs.test/search",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, ""), nil
			}
			return httpmock.NewStringResponse(200, searchPage), nil
		})

	if err := d.Navigate(context.Background(), "http://jobs.test/search", ".results"); err != nil {
		t.Fatalf("navigate after retries: %v", err)
	}
	if calls != 3 {
		t.Fatalf("fetch calls = %d, want 3", calls)
	}
}

func TestStaticClickFollowsHref(t *testing.T) {
	d, transport := newStaticDriver(t)
	transport.RegisterResponder("GET", "http://jobs.test/search",
		httpmock.NewStringResponder(200, searchPage))
	transport.RegisterResponder("GET", "http://jobs.test/search?page=2",
		httpmock.NewStringResponder(200, secondPage))

	if err := d.Navigate(context.Background(), "http://jobs.test/search", ".results"); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	ok, err := d.Click(context.Background(), "a.next")
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if !ok {
		t.Fatalf("next link should have been followed")
	}
	if got := d.CurrentURL(); got != "http://jobs.test/search?page=2" {
		t.Fatalf("current url after click = %q", got)
	}

	// Second page has no next affordance.
	ok, err = d.Click(context.Background(), "a.next")
	if err != nil {
		t.Fatalf("click on last page: %v", err)
	}
	if ok {
		t.Fatalf("click should report absent next link")
	}
}

func TestStaticWaitForOnFetchedPage(t *testing.T) {
	d, transport := newStaticDriver(t)
	transport.RegisterResponder("GET", "http://jobs.test/search",
		httpmock.NewStringResponder(200, searchPage))

	if err := d.Navigate(context.Background(), "http://jobs.test/search", ""); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := d.WaitFor(context.Background(), ".results"); err != nil {
		t.Fatalf("waitfor present selector: %v", err)
	}

	err := d.WaitFor(context.Background(), ".missing")
	var notFound *SelectorNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want SelectorNotFoundError", err)
	}
}
