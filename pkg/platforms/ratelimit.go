package platforms

import (
	"context"

	"golang.org/x/time/rate"
)

type limited struct {
	SongSource
	limiter *rate.Limiter
}

// WithRateLimit spaces searches to at most perSecond requests per second.
// A non-positive rate leaves src unchanged.
func WithRateLimit(src SongSource, perSecond float64) SongSource {
	if perSecond <= 0 {
		return src
	}
	return &limited{SongSource: src, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (l *limited) SearchSongs(ctx context.Context, song string) ([]RawRow, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.SongSource.SearchSongs(ctx, song)
}

func (l *limited) Close() error { return closeSource(l.SongSource) }
