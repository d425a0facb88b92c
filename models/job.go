// Package models defines the canonical data structures shared by the
// crawl pipeline.
package models

import "time"

// CompanyDetails carries the employer-level fields some sources expose.
// Every field is optional; sources that only list a company name leave
// the rest empty.
type CompanyDetails struct {
	Name    string `json:"name,omitempty"`
	Logo    string `json:"logo,omitempty"`
	About   string `json:"about,omitempty"`
	Rating  string `json:"rating,omitempty"`
	Reviews string `json:"reviews,omitempty"`
}

// JobListing is the canonical, persisted shape of one job posting.
// The pair (Source, ApplyLink) identifies a listing: two scrapes of the
// same posting must resolve to the same pair regardless of incidental
// field drift.
type JobListing struct {
	Source         string         `json:"source"`
	ApplyLink      string         `json:"apply_link"`
	Title          string         `json:"title"`
	Company        string         `json:"company"`
	Location       string         `json:"location"`
	Description    string         `json:"description"`
	Skills         []string       `json:"skills"`
	Salary         string         `json:"salary,omitempty"`
	Experience     string         `json:"experience,omitempty"`
	EmploymentType string         `json:"employment_type,omitempty"`
	PostedDate     string         `json:"posted_date,omitempty"`
	CompanyDetails CompanyDetails `json:"company_details"`
	ScrapedAt      time.Time      `json:"scraped_at"`
}

// Key returns the dedup identity used for upserts.
func (j *JobListing) Key() string {
	return j.Source + "\x00" + j.ApplyLink
}

// RunMetadata is the per-source snapshot written after each successful
// run. It is replaced wholesale on every run, never accumulated.
type RunMetadata struct {
	Source      string    `json:"source"`
	TotalJobs   int       `json:"total_jobs"`
	LastUpdated time.Time `json:"last_updated"`
}

// RawRecord is the flat field map emitted by the extraction engine.
// Scalar fields and list fields live in separate maps so a missing
// selector can default to the type-appropriate zero value.
type RawRecord struct {
	Fields map[string]string
	Lists  map[string][]string
}

// NewRawRecord returns an empty record with both maps allocated.
func NewRawRecord() RawRecord {
	return RawRecord{
		Fields: make(map[string]string),
		Lists:  make(map[string][]string),
	}
}

// Field returns the scalar value for name, or "" when absent.
func (r RawRecord) Field(name string) string {
	return r.Fields[name]
}

// List returns the list value for name, or nil when absent.
func (r RawRecord) List(name string) []string {
	return r.Lists[name]
}
