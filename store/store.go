// Package store persists canonical job listings. All writes go through
// the Sink interface: an atomic upsert keyed on (source, applyLink) and
// a per-source run-metadata snapshot.
package store

import (
	"context"
	"fmt"

	"github.com/scrapjob/crawler/models"
)

// Sink is the ingestion target. Both operations are idempotent:
// re-running the same input against the same store leaves it in the
// same final state.
type Sink interface {
	// Upsert inserts the listing or fully replaces the stored one with
	// the same (source, applyLink) identity. The first-seen timestamp
	// is the only field a replace preserves.
	Upsert(ctx context.Context, listing *models.JobListing) error

	// RecordRunMetadata replaces the metadata snapshot for the source.
	// It is a gauge, not an accumulating counter.
	RecordRunMetadata(ctx context.Context, meta models.RunMetadata) error

	Close() error
}

// StoreWriteError wraps a failed sink write. Writes are retryable.
type StoreWriteError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
