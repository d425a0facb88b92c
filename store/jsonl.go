package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/scrapjob/crawler/models"
)

// JSONL is a dry-run Sink that writes one JSON object per line. Upserts
// are buffered keyed by identity until Close so that re-scraped
// listings replace earlier lines instead of duplicating them.
type JSONL struct {
	mu     sync.Mutex
	w      io.WriteCloser
	jobs   map[string]models.JobListing
	meta   map[string]models.RunMetadata
	closed bool
}

func NewJSONL(w io.WriteCloser) *JSONL {
	return &JSONL{
		w:    w,
		jobs: make(map[string]models.JobListing),
		meta: make(map[string]models.RunMetadata),
	}
}

func (s *JSONL) Upsert(ctx context.Context, listing *models.JobListing) error {
	if err := ctx.Err(); err != nil {
		return &StoreWriteError{Op: "upsert", Key: listing.Key(), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &StoreWriteError{Op: "upsert", Key: listing.Key(), Err: errClosed}
	}
	s.jobs[listing.Key()] = *listing
	return nil
}

func (s *JSONL) RecordRunMetadata(ctx context.Context, meta models.RunMetadata) error {
	if err := ctx.Err(); err != nil {
		return &StoreWriteError{Op: "record_run_metadata", Key: meta.Source, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &StoreWriteError{Op: "record_run_metadata", Key: meta.Source, Err: errClosed}
	}
	s.meta[meta.Source] = meta
	return nil
}

// Close flushes the buffered listings and metadata snapshots in a
// stable order and closes the underlying writer.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	enc := json.NewEncoder(s.w)
	for _, key := range sortedKeys(s.jobs) {
		job := s.jobs[key]
		if err := enc.Encode(&job); err != nil {
			s.w.Close()
			return fmt.Errorf("encode listing: %w", err)
		}
	}
	for _, source := range sortedKeys(s.meta) {
		meta := s.meta[source]
		if err := enc.Encode(&meta); err != nil {
			s.w.Close()
			return fmt.Errorf("encode run metadata: %w", err)
		}
	}
	return s.w.Close()
}

var errClosed = fmt.Errorf("sink closed")

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
