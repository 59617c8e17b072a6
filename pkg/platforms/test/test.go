package test

import (
	"context"
	"errors"
	"sync"

	"github.com/cmaudit/claimscope/pkg/platforms"
)

// ErrInjected is the failure returned by Flaky.
var ErrInjected = errors.New("injected failure")

// Flaky wraps a source and fails searches for selected songs a number of
// times before letting them through. It exercises retry and restart paths.
type Flaky struct {
	platforms.SongSource

	mu       sync.Mutex
	failures map[string]int
	Calls    map[string]int
}

// NewFlaky fails every search for a song in failures that many times.
func NewFlaky(src platforms.SongSource, failures map[string]int) *Flaky {
	f := &Flaky{SongSource: src, failures: make(map[string]int), Calls: make(map[string]int)}
	for k, v := range failures {
		f.failures[k] = v
	}
	return f
}

// SearchSongs implements platforms.SongSource.
func (f *Flaky) SearchSongs(ctx context.Context, song string) ([]platforms.RawRow, error) {
	f.mu.Lock()
	f.Calls[song]++
	fail := f.failures[song] > 0
	if fail {
		f.failures[song]--
	}
	f.mu.Unlock()

	if fail {
		return nil, ErrInjected
	}
	return f.SongSource.SearchSongs(ctx, song)
}
