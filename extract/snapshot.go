// Package extract turns page snapshots into raw field maps using an
// adapter's selector map. Extraction is pure and tolerant: a missing
// field yields the type-appropriate empty value, never an error.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a parsed, immutable copy of a page taken by the
// automation driver. Live DOM handles never cross the driver boundary;
// everything downstream works on this plain data.
type Snapshot struct {
	doc  *goquery.Document
	base *url.URL
}

// NewSnapshot parses html. pageURL is used to resolve relative links.
func NewSnapshot(html, pageURL string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	return &Snapshot{doc: doc, base: base}, nil
}

// URL returns the address the snapshot was taken from.
func (s *Snapshot) URL() string {
	if s.base == nil {
		return ""
	}
	return s.base.String()
}

// HTML re-serializes the snapshot, used for diagnostic dumps.
func (s *Snapshot) HTML() (string, error) {
	return s.doc.Html()
}

// Has reports whether any node matches sel.
func (s *Snapshot) Has(sel string) bool {
	return s.doc.Find(sel).Length() > 0
}

// Root returns the whole document as a single region, used for
// detail-page extraction.
func (s *Snapshot) Root() *Region {
	return &Region{sel: s.doc.Selection, base: s.base}
}

// Regions returns one region per node matching the container selector.
func (s *Snapshot) Regions(containerSel string) []*Region {
	var regions []*Region
	s.doc.Find(containerSel).Each(func(_ int, node *goquery.Selection) {
		regions = append(regions, &Region{sel: node, base: s.base})
	})
	return regions
}

// Region is a scoped view over part of a snapshot, exposing the
// capability set the extraction engine needs: text, attribute and list
// lookup plus link resolution.
type Region struct {
	sel  *goquery.Selection
	base *url.URL
}

// Text returns the trimmed text of the first match, or "".
func (r *Region) Text(sel string) string {
	return collapseSpace(r.sel.Find(sel).First().Text())
}

// Attr returns the named attribute of the first match, or "".
func (r *Region) Attr(sel, attr string) string {
	v, _ := r.sel.Find(sel).First().Attr(attr)
	return strings.TrimSpace(v)
}

// Link returns the href of the first match resolved against the page
// URL, or "".
func (r *Region) Link(sel string) string {
	href := r.Attr(sel, "href")
	if href == "" {
		// Image links carry their address in src instead.
		href = r.Attr(sel, "src")
	}
	return r.resolve(href)
}

// List returns the trimmed text of every match. Empty matches are
// skipped; no match yields nil.
func (r *Region) List(sel string) []string {
	var values []string
	r.sel.Find(sel).Each(func(_ int, node *goquery.Selection) {
		if text := collapseSpace(node.Text()); text != "" {
			values = append(values, text)
		}
	})
	return values
}

func (r *Region) resolve(href string) string {
	if href == "" {
		return ""
	}
	if r.base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return r.base.ResolveReference(ref).String()
}

// collapseSpace trims and collapses internal whitespace runs so that
// incidental formatting drift between scrapes does not change values.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
