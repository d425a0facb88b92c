package models

import "time"

// SourceStatus is the per-adapter outcome recorded in the run report.
type SourceStatus string

const (
	// StatusSucceeded means pagination exhausted normally and every
	// normalized record was persisted.
	StatusSucceeded SourceStatus = "succeeded"
	// StatusPartial means some records were persisted but the session
	// failed part-way or some writes could not be completed.
	StatusPartial SourceStatus = "partial"
	// StatusFailed means no records reached the store.
	StatusFailed SourceStatus = "failed"
)

// SourceOutcome summarises one adapter run.
type SourceOutcome struct {
	Source     string       `json:"source"`
	Status     SourceStatus `json:"status"`
	Count      int          `json:"count"`
	Pages      int          `json:"pages"`
	Dropped    int          `json:"dropped,omitempty"`
	Duplicates int          `json:"duplicates,omitempty"`
	Errors     []string     `json:"errors,omitempty"`

	// Unwritten holds records that could not be persisted after the
	// store retries were exhausted, kept for manual replay.
	Unwritten []*JobListing `json:"-"`
}

// RunReport is the orchestrator's summary for one execution. It is the
// sole surface for failures: no partial ingestion is silently lost.
type RunReport struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Outcomes   []SourceOutcome `json:"outcomes"`
}

// TotalWritten sums the persisted record counts across sources.
func (r *RunReport) TotalWritten() int {
	total := 0
	for _, o := range r.Outcomes {
		total += o.Count
	}
	return total
}

// Failed reports whether any source ended in a non-succeeded state.
func (r *RunReport) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Status != StatusSucceeded {
			return true
		}
	}
	return false
}
