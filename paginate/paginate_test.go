package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/scrapjob/crawler/adapter"
	"github.com/scrapjob/crawler/driver"
	"github.com/scrapjob/crawler/extract"
)

// fakeDriver scripts a driver: Navigate serves pages by URL, Click
// serves a queue of "next" pages.
type fakeDriver struct {
	pages     map[string]string
	nextPages []string
	navErr    map[string]error
	clickErr  error

	current string
	html    string
	clicks  int
	closed  bool
}

func (f *fakeDriver) Navigate(ctx context.Context, url, waitSelector string) error {
	if err := f.navErr[url]; err != nil {
		return err
	}
	html, ok := f.pages[url]
	if !ok {
		return &driver.NavigationTimeoutError{URL: url, Err: errors.New("no such page")}
	}
	f.current = url
	f.html = html
	return nil
}

func (f *fakeDriver) WaitFor(ctx context.Context, selector string) error { return nil }

func (f *fakeDriver) Click(ctx context.Context, selector string) (bool, error) {
	if f.clickErr != nil {
		return false, f.clickErr
	}
	if len(f.nextPages) == 0 {
		return false, nil
	}
	f.clicks++
	f.html = f.nextPages[0]
	f.nextPages = f.nextPages[1:]
	return true, nil
}

func (f *fakeDriver) HumanScroll(ctx context.Context) error { return nil }

func (f *fakeDriver) Snapshot(ctx context.Context) (*extract.Snapshot, error) {
	return extract.NewSnapshot(f.html, f.current)
}

func (f *fakeDriver) CurrentURL() string { return f.current }
func (f *fakeDriver) Close() error       { f.closed = true; return nil }

func cardsPage(start, n int) string {
	html := "<html><body>"
	for i := start; i < start+n; i++ {
		html += fmt.Sprintf(
			`<div class="card"><a class="t" href="/job/%d">Job %d</a><span class="c">Acme</span></div>`, i, i)
	}
	return html + "</body></html>"
}

func testAdapter(strategy adapter.Strategy, maxPages int) adapter.Adapter {
	return adapter.Adapter{
		Name:         "testsource",
		Engine:       adapter.EngineStatic,
		EntryURLs:    []string{"http://jobs.test/search"},
		WaitSelector: ".card",
		List: adapter.SelectorMap{
			Card: ".card",
			Fields: map[string]string{
				"title":   ".t",
				"company": ".c",
			},
			Links: map[string]string{"applyLink": "a.t"},
		},
		Pagination: adapter.Pagination{
			Strategy:     strategy,
			NextSelector: "a.next",
			URLTemplate:  "http://jobs.test/search?page=%d",
			CursorStart:  1,
			MaxPages:     maxPages,
		},
	}
}

func TestRunBoundedByMaxPages(t *testing.T) {
	// A next control that never signals exhaustion: the hard bound must
	// still terminate the session.
	drv := &fakeDriver{
		pages: map[string]string{"http://jobs.test/search": cardsPage(0, 10)},
		nextPages: []string{
			cardsPage(10, 10), cardsPage(20, 10), cardsPage(30, 10),
			cardsPage(40, 10), cardsPage(50, 10),
		},
	}

	s := New(drv, testAdapter(adapter.StrategyNextLink, 3)).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if s.PagesVisited != 3 {
		t.Fatalf("pages visited = %d, want 3", s.PagesVisited)
	}
	if len(s.Accumulated) != 30 {
		t.Fatalf("accumulated = %d, want 30", len(s.Accumulated))
	}
}

func TestRunExhaustsWhenNextMissing(t *testing.T) {
	drv := &fakeDriver{
		pages:     map[string]string{"http://jobs.test/search": cardsPage(0, 5)},
		nextPages: []string{cardsPage(5, 5)},
	}

	s := New(drv, testAdapter(adapter.StrategyNextLink, 10)).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if len(s.Accumulated) != 10 {
		t.Fatalf("accumulated = %d, want 10", len(s.Accumulated))
	}
	if s.PagesVisited != 2 {
		t.Fatalf("pages visited = %d, want 2", s.PagesVisited)
	}
}

func TestRunAdvancingFailurePreservesPartialResults(t *testing.T) {
	drv := &fakeDriver{
		pages:    map[string]string{"http://jobs.test/search": cardsPage(0, 10)},
		clickErr: errors.New("browser crashed"),
	}

	s := New(drv, testAdapter(adapter.StrategyNextLink, 5)).Run(context.Background())
	if s.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", s.Status)
	}
	if s.Err == nil {
		t.Fatalf("failed session should carry its error")
	}
	if len(s.Accumulated) != 10 {
		t.Fatalf("accumulated = %d, want 10 records from the page before the failure", len(s.Accumulated))
	}
}

func TestRunFirstNavigationFailureFailsSession(t *testing.T) {
	drv := &fakeDriver{
		pages: map[string]string{},
		navErr: map[string]error{
			"http://jobs.test/search": &driver.SelectorNotFoundError{Selector: ".card", Err: errors.New("absent")},
		},
	}

	s := New(drv, testAdapter(adapter.StrategyNextLink, 5)).Run(context.Background())
	if s.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", s.Status)
	}
	var notFound *driver.SelectorNotFoundError
	if !errors.As(s.Err, &notFound) {
		t.Fatalf("err = %v, want SelectorNotFoundError", s.Err)
	}
}

func TestRunNoListingsMeansExhaustedNotError(t *testing.T) {
	drv := &fakeDriver{
		pages: map[string]string{"http://jobs.test/search": `<html><body><p>nothing here</p></body></html>`},
	}

	s := New(drv, testAdapter(adapter.StrategyNextLink, 5)).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if len(s.Accumulated) != 0 {
		t.Fatalf("accumulated = %d, want 0", len(s.Accumulated))
	}
	if s.Err != nil {
		t.Fatalf("unexpected error: %v", s.Err)
	}
}

func TestRunCursorStrategy(t *testing.T) {
	drv := &fakeDriver{
		pages: map[string]string{
			"http://jobs.test/search":        cardsPage(0, 4),
			"http://jobs.test/search?page=2": cardsPage(4, 4),
			"http://jobs.test/search?page=3": `<html><body><p>done</p></body></html>`,
		},
	}

	s := New(drv, testAdapter(adapter.StrategyCursor, 10)).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if len(s.Accumulated) != 8 {
		t.Fatalf("accumulated = %d, want 8", len(s.Accumulated))
	}
}

func TestRunKeepsIdentitylessRecordsOnLaterPages(t *testing.T) {
	// A card without an applyLink on page 2 must still be accumulated,
	// so the drop happens (and is counted) at normalization instead of
	// vanishing here.
	pageTwo := `<html><body>
	  <div class="card"><a class="t" href="/job/10">Job 10</a><span class="c">Acme</span></div>
	  <div class="card"><span class="t">No Link Here</span><span class="c">Acme</span></div>
	</body></html>`
	drv := &fakeDriver{
		pages:     map[string]string{"http://jobs.test/search": cardsPage(0, 3)},
		nextPages: []string{pageTwo},
	}

	s := New(drv, testAdapter(adapter.StrategyNextLink, 2)).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if len(s.Accumulated) != 5 {
		t.Fatalf("accumulated = %d, want 5 including the identity-less page-2 card", len(s.Accumulated))
	}
	var identityless int
	for _, record := range s.Accumulated {
		if record.Field("applyLink") == "" {
			identityless++
		}
	}
	if identityless != 1 {
		t.Errorf("identity-less records = %d, want 1", identityless)
	}
}

func TestRunScrollSkipsIdentitylessRecordsOnReExtraction(t *testing.T) {
	// Under scroll the same page is extracted repeatedly; identity-less
	// cards are taken once, not per iteration.
	page := `<html><body>
	  <div class="card"><a class="t" href="/job/1">Job 1</a><span class="c">Acme</span></div>
	  <div class="card"><span class="t">No Link Here</span><span class="c">Acme</span></div>
	</body></html>`
	drv := &fakeDriver{
		pages: map[string]string{"http://jobs.test/search": page},
	}

	s := New(drv, testAdapter(adapter.StrategyScroll, 10)).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if len(s.Accumulated) != 2 {
		t.Fatalf("accumulated = %d, want 2 with no duplicated identity-less card", len(s.Accumulated))
	}
}

func TestRunScrollStrategyStallsWhenNoNewContent(t *testing.T) {
	// Scrolling never reveals new cards: dedup by applyLink detects the
	// stall and the session exhausts instead of looping.
	drv := &fakeDriver{
		pages: map[string]string{"http://jobs.test/search": cardsPage(0, 6)},
	}

	s := New(drv, testAdapter(adapter.StrategyScroll, 50)).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if len(s.Accumulated) != 6 {
		t.Fatalf("accumulated = %d, want 6", len(s.Accumulated))
	}
	if s.PagesVisited >= 50 {
		t.Fatalf("stall detection did not kick in, visited %d pages", s.PagesVisited)
	}
}

func TestRunDetailPassFillsGaps(t *testing.T) {
	listHTML := `<html><body>
	  <div class="card"><a class="t" href="/job/1">Engineer</a><span class="c">Acme</span></div>
	</body></html>`
	detailHTML := `<html><body>
	  <div class="details">
	    <h1 class="t">Detail Title Should Not Win</h1>
	    <div class="desc">Full description text</div>
	  </div>
	</body></html>`

	drv := &fakeDriver{
		pages: map[string]string{
			"http://jobs.test/search": listHTML,
			"http://jobs.test/job/1":  detailHTML,
		},
	}

	ad := testAdapter(adapter.StrategyNextLink, 1)
	ad.Detail = &adapter.SelectorMap{
		Card: ".details",
		Fields: map[string]string{
			"title":       "h1.t",
			"description": ".desc",
		},
	}

	s := New(drv, ad).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if len(s.Accumulated) != 1 {
		t.Fatalf("accumulated = %d, want 1", len(s.Accumulated))
	}
	record := s.Accumulated[0]
	if got := record.Field("title"); got != "Engineer" {
		t.Errorf("title = %q, card value must survive the merge", got)
	}
	if got := record.Field("description"); got != "Full description text" {
		t.Errorf("description = %q, want detail value", got)
	}
}

func TestRunDetailFailureKeepsCardRecord(t *testing.T) {
	drv := &fakeDriver{
		pages: map[string]string{
			"http://jobs.test/search": cardsPage(0, 2),
		},
	}

	ad := testAdapter(adapter.StrategyNextLink, 1)
	ad.Detail = &adapter.SelectorMap{
		Fields: map[string]string{"description": ".desc"},
	}

	s := New(drv, ad).Run(context.Background())
	if s.Status != StatusExhausted {
		t.Fatalf("status = %s, want exhausted", s.Status)
	}
	if s.DetailErrors != 2 {
		t.Fatalf("detail errors = %d, want 2", s.DetailErrors)
	}
	if len(s.Accumulated) != 2 {
		t.Fatalf("accumulated = %d, card records must be kept", len(s.Accumulated))
	}
	if got := s.Accumulated[0].Field("title"); got != "Job 0" {
		t.Errorf("title = %q", got)
	}
}

func TestRunDetailSkipPredicate(t *testing.T) {
	drv := &fakeDriver{
		pages: map[string]string{
			"http://jobs.test/search": cardsPage(0, 3),
		},
	}

	ad := testAdapter(adapter.StrategyNextLink, 1)
	ad.Detail = &adapter.SelectorMap{
		Fields: map[string]string{"description": ".desc"},
	}

	skip := func(ctx context.Context, link string) bool {
		return link == "http://jobs.test/job/1"
	}

	s := New(drv, ad, WithSkipDetail(skip)).Run(context.Background())
	if s.DetailSkipped != 1 {
		t.Fatalf("detail skipped = %d, want 1", s.DetailSkipped)
	}
	if s.DetailErrors != 2 {
		t.Fatalf("detail errors = %d, want 2", s.DetailErrors)
	}
}
