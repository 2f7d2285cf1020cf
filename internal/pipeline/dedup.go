package pipeline

import (
	"context"
	"time"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

// DedupWindow is how far back an identical headline blocks a new record
const DedupWindow = 24 * time.Hour

// HeadlineChecker looks up prior records by exact headline
type HeadlineChecker interface {
	HeadlineExistsSince(ctx context.Context, symbol, headline string, since time.Time) (bool, error)
}

// Deduplicator decides whether an article was already recorded for a symbol.
// Matching is exact string equality on the headline.
type Deduplicator struct {
	store HeadlineChecker
	now   func() time.Time
}

// NewDeduplicator creates a deduplicator backed by the given store
func NewDeduplicator(store HeadlineChecker, now func() time.Time) *Deduplicator {
	if now == nil {
		now = time.Now
	}
	return &Deduplicator{store: store, now: now}
}

// IsDuplicate reports whether symbol already has a record with headline
// timestamped within the trailing window.
func (d *Deduplicator) IsDuplicate(ctx context.Context, symbol, headline string, within time.Duration) (bool, error) {
	exists, err := d.store.HeadlineExistsSince(ctx, symbol, headline, d.now().Add(-within))
	if err != nil {
		return false, &models.PersistenceError{Op: "check duplicate headline", Err: err}
	}
	return exists, nil
}
