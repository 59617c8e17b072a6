package platforms

import (
	"context"
	"io"
	"strings"
	"time"

	gcache "github.com/patrickmn/go-cache"
)

type cached struct {
	SongSource
	cache *gcache.Cache
}

// WithCache memoizes successful searches per song name for ttl, so repeated
// searches for the same track within one process reuse the first result.
func WithCache(src SongSource, ttl time.Duration) SongSource {
	if ttl <= 0 {
		return src
	}
	return &cached{SongSource: src, cache: gcache.New(ttl, time.Minute)}
}

func (c *cached) SearchSongs(ctx context.Context, song string) ([]RawRow, error) {
	key := strings.ToLower(strings.TrimSpace(song))
	if v, ok := c.cache.Get(key); ok {
		return v.([]RawRow), nil
	}
	rows, err := c.SongSource.SearchSongs(ctx, song)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, rows)
	return rows, nil
}

func (c *cached) Close() error { return closeSource(c.SongSource) }

func closeSource(src SongSource) error {
	if cl, ok := src.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// Close releases every source that holds resources and returns the first
// error.
func Close(sources []SongSource) error {
	var first error
	for _, s := range sources {
		if err := closeSource(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
