package platforms

import (
	"context"
	"fmt"
	"time"

	"github.com/cmaudit/claimscope/pkg/catalog"
)

type retrying struct {
	SongSource
	attempts int
	sleep    time.Duration
	log      catalog.Logger
}

// WithRetry retries failed searches up to attempts times with a fixed sleep
// in between. Exhausted retries return ErrQueryFailed.
func WithRetry(src SongSource, attempts int, sleep time.Duration, log catalog.Logger) SongSource {
	if attempts <= 0 {
		attempts = 1
	}
	return &retrying{SongSource: src, attempts: attempts, sleep: sleep, log: catalog.OrNop(log)}
}

func (r *retrying) SearchSongs(ctx context.Context, song string) ([]RawRow, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		rows, err := r.SongSource.SearchSongs(ctx, song)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		if IsPermanent(err) || ctx.Err() != nil {
			break
		}
		if attempt == r.attempts {
			break
		}
		r.log.Warnf("Searching %s for %q failed (attempt %d/%d): %v. Retrying in %s", r.Name(), song, attempt, r.attempts, err, r.sleep)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s %q: %w", ErrQueryFailed, r.Name(), song, ctx.Err())
		case <-time.After(r.sleep):
		}
	}
	return nil, fmt.Errorf("%w: %s %q: %w", ErrQueryFailed, r.Name(), song, lastErr)
}

// Close closes the wrapped source if it holds resources.
func (r *retrying) Close() error { return closeSource(r.SongSource) }
