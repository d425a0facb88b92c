// Package normalize maps raw extraction records into the canonical
// JobListing shape. All source-specific shape quirks are resolved here
// so the extraction engine can stay a flat selector-to-string mapping.
package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/scrapjob/crawler/adapter"
	"github.com/scrapjob/crawler/models"
)

// ExtractionMismatchError reports a record whose identity field is
// empty. The record is dropped, never ingested.
type ExtractionMismatchError struct {
	Source string
	Field  string
}

func (e *ExtractionMismatchError) Error() string {
	return fmt.Sprintf("normalize: %s record missing identity field %q", e.Source, e.Field)
}

// Best-effort patterns over free-text descriptions. A non-match leaves
// the field empty, it never fails the record.
var (
	experiencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)experience:\s*.*?(\d+\+?\s*years?)`),
		regexp.MustCompile(`(?i)(\d+\+?\s*years?)[^.\n]*experience`),
		regexp.MustCompile(`(?i)experience[^.\n]*?(\d+\+?\s*years?)`),
	}
	employmentTypePattern = regexp.MustCompile(`(?i)(?:job|employment)\s+type:?\s*([^.\n]+)`)
	skillsPattern         = regexp.MustCompile(`(?i)(?:required\s+|technical\s+|suggested\s+)?skills:([^.\n]*)`)
)

// Record maps one raw record plus its adapter into a JobListing,
// stamping ScrapedAt with now. It returns an ExtractionMismatchError
// when the record has no usable applyLink.
func Record(r models.RawRecord, ad adapter.Adapter, now time.Time) (*models.JobListing, error) {
	link := canonicalLink(r.Field("applyLink"))
	if link == "" {
		return nil, &ExtractionMismatchError{Source: ad.Name, Field: "applyLink"}
	}

	field := func(name string) string {
		if v := clean(r.Field(name)); v != "" {
			return v
		}
		return clean(ad.Defaults[name])
	}

	// Heuristics run on the raw description: newlines delimit the
	// free-text labels they key on.
	rawDescription := r.Field("description")

	experience := field("experience")
	if experience == "" {
		experience = matchFirst(experiencePatterns, rawDescription)
	}

	employmentType := field("employmentType")
	if employmentType == "" {
		if m := employmentTypePattern.FindStringSubmatch(rawDescription); m != nil {
			employmentType = clean(m[1])
		}
	}

	skills := cleanList(r.List("skills"))
	if len(skills) == 0 {
		skills = skillsFromDescription(rawDescription)
	}

	company := field("company")
	if company == "" {
		company = field("companyName")
	}

	return &models.JobListing{
		Source:         ad.Name,
		ApplyLink:      link,
		Title:          field("title"),
		Company:        company,
		Location:       location(r, ad),
		Description:    clean(rawDescription),
		Skills:         skills,
		Salary:         field("salary"),
		Experience:     experience,
		EmploymentType: employmentType,
		PostedDate:     field("postedDate"),
		CompanyDetails: models.CompanyDetails{
			Name:    clean(r.Field("companyName")),
			Logo:    clean(r.Field("companyLogo")),
			About:   clean(r.Field("companyAbout")),
			Rating:  clean(r.Field("companyRating")),
			Reviews: clean(r.Field("companyReviews")),
		},
		ScrapedAt: now,
	}, nil
}

// location collapses the flat and nested location shapes into one
// field, preferring the most specific non-empty value.
func location(r models.RawRecord, ad adapter.Adapter) string {
	for _, name := range []string{"location", "jobLocation", "companyLocation"} {
		if v := clean(r.Field(name)); v != "" {
			return v
		}
	}
	return clean(ad.Defaults["location"])
}

// canonicalLink strips the fragment so that the same posting reached
// via different anchors still resolves to one identity.
func canonicalLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return u.String()
}

func matchFirst(patterns []*regexp.Regexp, text string) string {
	if text == "" {
		return ""
	}
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return clean(m[1])
		}
	}
	return ""
}

func skillsFromDescription(description string) []string {
	m := skillsPattern.FindStringSubmatch(description)
	if m == nil {
		return nil
	}
	return cleanList(strings.Split(m[1], ","))
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = clean(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
