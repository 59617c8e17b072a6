// Package registry builds the configured platform sources.
package registry

import (
	"fmt"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/platforms"
	"github.com/cmaudit/claimscope/pkg/platforms/dev"
	"github.com/cmaudit/claimscope/pkg/platforms/sqldb"
	"github.com/cmaudit/claimscope/pkg/platforms/webapi"
	"github.com/cmaudit/claimscope/pkg/platforms/webpage"
	"github.com/cmaudit/claimscope/pkg/whttp"
)

// Binding is one enabled platform with its decorated source and mapper.
type Binding struct {
	Platform config.Platform
	Source   platforms.SongSource
	Mapper   platforms.Mapper
}

// Options controls Open.
type Options struct {
	Proxy string
	// Dev serves every platform from the built-in fixture.
	Dev bool
	Log catalog.Logger
}

// Open builds a source for every enabled platform, in configuration order.
// Sources are wrapped with the platform's rate limit, the retry policy and
// the cache, innermost first.
func Open(cfg *config.Config, opts Options) ([]Binding, error) {
	var bindings []Binding
	fail := func(err error) ([]Binding, error) {
		Close(bindings)
		return nil, err
	}

	retry := cfg.Retry()
	for _, p := range cfg.Platforms() {
		base, err := open(p, opts)
		if err != nil {
			return fail(err)
		}
		src := platforms.WithRateLimit(base, p.RateLimit)
		src = platforms.WithRetry(src, retry.Attempts, retry.Sleep, opts.Log)
		src = platforms.WithCache(src, cfg.CacheTTL())
		bindings = append(bindings, Binding{
			Platform: p,
			Source:   src,
			Mapper:   platforms.NewMapper(p, cfg.UnavailableMarker()),
		})
	}
	return bindings, nil
}

func open(p config.Platform, opts Options) (platforms.SongSource, error) {
	if opts.Dev || p.Kind == config.KindDev {
		return dev.New(p.Name), nil
	}
	switch p.Kind {
	case config.KindSQLite:
		return sqldb.Open(p)
	case config.KindHTTP, config.KindHTML:
		// Retries happen in WithRetry with the configured fixed sleep.
		client, err := whttp.NewClient(whttp.Options{Proxy: opts.Proxy, RetryMax: 0})
		if err != nil {
			return nil, err
		}
		if p.Kind == config.KindHTTP {
			return webapi.New(p, client)
		}
		return webpage.New(p, client)
	default:
		return nil, fmt.Errorf("platform %s: unknown source kind %q", p.Name, p.Kind)
	}
}

// Close releases every bound source.
func Close(bindings []Binding) error {
	sources := make([]platforms.SongSource, 0, len(bindings))
	for _, b := range bindings {
		sources = append(sources, b.Source)
	}
	return platforms.Close(sources)
}
