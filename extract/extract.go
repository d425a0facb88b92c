package extract

import (
	"errors"

	"github.com/scrapjob/crawler/adapter"
	"github.com/scrapjob/crawler/models"
)

// ErrNoListings signals that the listing-card container itself did not
// match. It means "no listings on this page", not a field failure; the
// pagination controller decides whether that ends the session.
var ErrNoListings = errors.New("extract: no listing cards matched")

// Cards extracts one raw record per listing card. Individual field
// selectors are tolerated when absent; only a missing card container is
// reported, via ErrNoListings.
func Cards(s *Snapshot, m adapter.SelectorMap) ([]models.RawRecord, error) {
	regions := s.Regions(m.Card)
	if len(regions) == 0 {
		return nil, ErrNoListings
	}

	records := make([]models.RawRecord, 0, len(regions))
	for _, region := range regions {
		records = append(records, fromRegion(region, m))
	}
	return records, nil
}

// Detail extracts a single record from a detail page, scoped to the
// document root. Detail pages have no card container, so there is
// nothing to fail on: a page with none of the selectors yields an
// all-empty record.
func Detail(s *Snapshot, m adapter.SelectorMap) models.RawRecord {
	return fromRegion(s.Root(), m)
}

// Merge fills gaps in the card record with values from the detail
// record. Card fields win when populated: list pages are the more
// reliable source for title and company on sites where the two
// disagree.
func Merge(card, detail models.RawRecord) models.RawRecord {
	merged := models.NewRawRecord()
	for name, value := range card.Fields {
		merged.Fields[name] = value
	}
	for name, value := range detail.Fields {
		if merged.Fields[name] == "" {
			merged.Fields[name] = value
		}
	}
	for name, value := range card.Lists {
		merged.Lists[name] = value
	}
	for name, value := range detail.Lists {
		if len(merged.Lists[name]) == 0 {
			merged.Lists[name] = value
		}
	}
	return merged
}

func fromRegion(region *Region, m adapter.SelectorMap) models.RawRecord {
	record := models.NewRawRecord()
	for name, sel := range m.Fields {
		record.Fields[name] = region.Text(sel)
	}
	for name, sel := range m.Links {
		record.Fields[name] = region.Link(sel)
	}
	for name, sel := range m.Lists {
		record.Lists[name] = region.List(sel)
	}
	return record
}
