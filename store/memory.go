package store

import (
	"context"
	"sync"
	"time"

	"github.com/scrapjob/crawler/models"
)

// Memory is an in-process Sink used in tests and dry runs. It applies
// the same replace semantics as the Postgres sink, including the
// preserved first-seen timestamp.
type Memory struct {
	mu        sync.Mutex
	jobs      map[string]models.JobListing
	firstSeen map[string]time.Time
	meta      map[string]models.RunMetadata
}

func NewMemory() *Memory {
	return &Memory{
		jobs:      make(map[string]models.JobListing),
		firstSeen: make(map[string]time.Time),
		meta:      make(map[string]models.RunMetadata),
	}
}

func (m *Memory) Upsert(ctx context.Context, listing *models.JobListing) error {
	if err := ctx.Err(); err != nil {
		return &StoreWriteError{Op: "upsert", Key: listing.Key(), Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := listing.Key()
	if _, ok := m.firstSeen[key]; !ok {
		m.firstSeen[key] = listing.ScrapedAt
	}
	m.jobs[key] = *listing
	return nil
}

func (m *Memory) RecordRunMetadata(ctx context.Context, meta models.RunMetadata) error {
	if err := ctx.Err(); err != nil {
		return &StoreWriteError{Op: "record_run_metadata", Key: meta.Source, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[meta.Source] = meta
	return nil
}

func (m *Memory) Close() error { return nil }

// Len reports the number of stored listings.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Job returns the stored listing for (source, applyLink), if any.
func (m *Memory) Job(source, applyLink string) (models.JobListing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := models.JobListing{Source: source, ApplyLink: applyLink}
	stored, ok := m.jobs[j.Key()]
	return stored, ok
}

// FirstSeen returns the preserved first-seen timestamp for a listing.
func (m *Memory) FirstSeen(source, applyLink string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := models.JobListing{Source: source, ApplyLink: applyLink}
	ts, ok := m.firstSeen[j.Key()]
	return ts, ok
}

// Metadata returns the current snapshot for a source, if any.
func (m *Memory) Metadata(source string) (models.RunMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.meta[source]
	return meta, ok
}
