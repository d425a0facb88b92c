// Package paginate drives the automation driver across result pages
// for one adapter, accumulating raw records until a termination
// condition. The state machine is Init → Extracting → Advancing →
// (Extracting | Exhausted | Failed); maxPages is a hard upper bound, so
// the controller terminates even when next-page detection is
// unreliable.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scrapjob/crawler/adapter"
	"github.com/scrapjob/crawler/driver"
	"github.com/scrapjob/crawler/extract"
	"github.com/scrapjob/crawler/models"
)

// Status is the terminal state of a crawl session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusExhausted Status = "exhausted"
	StatusFailed    Status = "failed"
)

// Session is the ephemeral state of one adapter run. It is created at
// the start, owned by the controller for the run's lifetime, and
// discarded by the orchestrator afterwards. Accumulated records from
// pages that succeeded are preserved even when a later page fails.
type Session struct {
	Source       string
	CurrentPage  int
	PagesVisited int
	Accumulated  []models.RawRecord
	Status       Status
	Err          error

	// DetailErrors counts detail pages that could not be fetched; the
	// card-level record is kept in that case.
	DetailErrors  int
	DetailSkipped int
}

// SkipDetailFunc lets the orchestrator short-circuit detail fetches for
// listings already seen in a previous run.
type SkipDetailFunc func(ctx context.Context, applyLink string) bool

// Controller runs the pagination state machine for one adapter.
type Controller struct {
	drv    driver.Driver
	ad     adapter.Adapter
	logger *slog.Logger

	skipDetail SkipDetailFunc
}

// Option mutates a Controller before its run.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithSkipDetail installs the seen-listing predicate for the detail
// pass.
func WithSkipDetail(fn SkipDetailFunc) Option {
	return func(c *Controller) { c.skipDetail = fn }
}

// New builds a controller for one adapter run.
func New(drv driver.Driver, ad adapter.Adapter, opts ...Option) *Controller {
	c := &Controller{drv: drv, ad: ad, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run crawls the adapter's entry URLs to exhaustion, failure, or the
// page bound, then enriches accumulated records from detail pages when
// the adapter declares detail selectors. The returned session always
// carries whatever was accumulated before any failure.
func (c *Controller) Run(ctx context.Context) *Session {
	s := &Session{Source: c.ad.Name, Status: StatusRunning}
	seenLinks := make(map[string]bool)

	for _, entry := range c.ad.EntryURLs {
		if s.PagesVisited >= c.ad.Pagination.MaxPages {
			break
		}
		if err := c.drv.Navigate(ctx, entry, c.ad.WaitSelector); err != nil {
			// First navigation failing after retries is a failed
			// session, not a silent empty result.
			return c.fail(s, err)
		}
		c.preprocess(ctx)
		if failed := c.crawlEntry(ctx, s, seenLinks); failed {
			return s
		}
	}

	s.Status = StatusExhausted
	if c.ad.Detail != nil {
		c.enrichFromDetail(ctx, s)
	}
	return s
}

// crawlEntry pages through one entry URL until exhaustion or the page
// bound. It returns true when the session failed.
func (c *Controller) crawlEntry(ctx context.Context, s *Session, seenLinks map[string]bool) bool {
	firstPage := true
	cursor := c.ad.Pagination.CursorStart

	for {
		if err := ctx.Err(); err != nil {
			c.fail(s, err)
			return true
		}

		// Extracting
		if c.ad.Pagination.Strategy == adapter.StrategyScroll {
			if err := c.drv.HumanScroll(ctx); err != nil {
				c.fail(s, err)
				return true
			}
		}
		snap, err := c.drv.Snapshot(ctx)
		if err != nil {
			c.fail(s, err)
			return true
		}

		s.PagesVisited++
		s.CurrentPage++

		records, err := extract.Cards(snap, c.ad.List)
		if errors.Is(err, extract.ErrNoListings) {
			// Not an error: the page simply has no listings.
			c.logger.Debug("no listings on page",
				slog.String("source", s.Source),
				slog.Int("page", s.CurrentPage),
			)
			return false
		}

		fresh := 0
		for _, record := range records {
			link := record.Field("applyLink")
			if link != "" {
				if seenLinks[link] {
					continue
				}
				seenLinks[link] = true
			} else if !firstPage && c.ad.Pagination.Strategy == adapter.StrategyScroll {
				// Scroll re-extracts the whole page, which would
				// duplicate identity-less cards. Other strategies keep
				// them so normalization can count the drop.
				continue
			}
			s.Accumulated = append(s.Accumulated, record)
			fresh++
		}
		c.logger.Debug("page extracted",
			slog.String("source", s.Source),
			slog.Int("page", s.CurrentPage),
			slog.Int("cards", len(records)),
			slog.Int("fresh", fresh),
		)

		if fresh == 0 && !firstPage {
			// Advancing produced no new content: stalled, treated as
			// exhausted rather than an error.
			return false
		}
		firstPage = false

		if s.PagesVisited >= c.ad.Pagination.MaxPages {
			return false
		}

		// Advancing
		switch c.ad.Pagination.Strategy {
		case adapter.StrategyNextLink:
			ok, err := c.drv.Click(ctx, c.ad.Pagination.NextSelector)
			if err != nil {
				c.fail(s, err)
				return true
			}
			if !ok {
				return false
			}
			if err := c.drv.WaitFor(ctx, c.ad.WaitSelector); err != nil {
				c.fail(s, err)
				return true
			}
		case adapter.StrategyCursor:
			cursor++
			next := fmt.Sprintf(c.ad.Pagination.URLTemplate, cursor)
			if err := c.drv.Navigate(ctx, next, c.ad.WaitSelector); err != nil {
				c.fail(s, err)
				return true
			}
		case adapter.StrategyScroll:
			// The next iteration scrolls and re-extracts in place.
		}
	}
}

// enrichFromDetail runs the second extraction pass: navigate to each
// accumulated record's detail page and fill the gaps the card left.
// Card fields are never overwritten. A failed detail fetch keeps the
// card-level record.
func (c *Controller) enrichFromDetail(ctx context.Context, s *Session) {
	wait := c.ad.Detail.Card
	for i := range s.Accumulated {
		if ctx.Err() != nil {
			return
		}
		link := s.Accumulated[i].Field("applyLink")
		if link == "" {
			continue
		}
		if c.skipDetail != nil && c.skipDetail(ctx, link) {
			s.DetailSkipped++
			continue
		}
		if err := c.drv.Navigate(ctx, link, wait); err != nil {
			s.DetailErrors++
			c.logger.Debug("detail fetch failed",
				slog.String("source", s.Source),
				slog.String("url", link),
				slog.Any("error", err),
			)
			continue
		}
		snap, err := c.drv.Snapshot(ctx)
		if err != nil {
			s.DetailErrors++
			continue
		}
		detail := extract.Detail(snap, *c.ad.Detail)
		s.Accumulated[i] = extract.Merge(s.Accumulated[i], detail)
	}
}

func (c *Controller) preprocess(ctx context.Context) {
	// Pre-navigation steps are best effort and idempotent: an absent
	// interstitial is the normal case.
	for _, step := range c.ad.PreProcess {
		var err error
		switch step.Action {
		case "dismiss":
			_, err = c.drv.Click(ctx, step.Selector)
		case "wait":
			err = c.drv.WaitFor(ctx, step.Selector)
		case "scroll":
			err = c.drv.HumanScroll(ctx)
		}
		if err != nil {
			c.logger.Debug("preprocess step",
				slog.String("source", c.ad.Name),
				slog.String("action", step.Action),
				slog.Any("error", err),
			)
		}
	}
}

func (c *Controller) fail(s *Session, err error) *Session {
	s.Status = StatusFailed
	s.Err = err
	c.logger.Warn("crawl session failed",
		slog.String("source", s.Source),
		slog.Int("pages", s.PagesVisited),
		slog.Int("accumulated", len(s.Accumulated)),
		slog.Any("error", err),
	)
	return s
}
