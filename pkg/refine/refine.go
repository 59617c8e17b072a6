// Package refine narrows a platform's song search results down to the rows
// that plausibly belong to the declared artist, expanding the known artist
// and album names to a fixed point.
package refine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
)

// ErrNoRefiner is returned when a platform has no refine strategy registered.
var ErrNoRefiner = errors.New("no refine logic defined for platform")

// Refine comments.
const (
	CommentArtist    = "Artist name exact match"
	CommentAlbum     = "Album name exact match"
	CommentTrackOnly = "Track name exact match only"
)

// Input is everything one refinement call needs.
type Input struct {
	Song    string
	Artists []string
	Albums  []string
	Rows    []catalog.NormalizedRow
}

// Result is the refined candidate pool and the name sets that produced it.
type Result struct {
	Candidates       []catalog.Candidate
	ProcessedArtists []string
	ProcessedAlbums  []string
	Iterations       int
	Capped           bool
}

// Tier returns the candidates at the given tier.
func (r Result) Tier(tier int) []catalog.Candidate {
	var out []catalog.Candidate
	for _, c := range r.Candidates {
		if c.RefineTier == tier {
			out = append(out, c)
		}
	}
	return out
}

// Refiner is a refine strategy.
type Refiner interface {
	Refine(in Input) Result
}

type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s.add(n)
	}
	return s
}

func (s nameSet) add(n string) {
	if n = catalog.Clean(n); n != "" {
		s[n] = struct{}{}
	}
}

func (s nameSet) has(n string) bool {
	_, ok := s[n]
	return ok
}

func (s nameSet) union(o nameSet) {
	for n := range o {
		s[n] = struct{}{}
	}
}

func (s nameSet) minus(o nameSet) nameSet {
	out := make(nameSet)
	for n := range s {
		if !o.has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

func (s nameSet) sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// FixedPoint expands the artist and album name sets breadth-first until no
// new names appear or MaxIterations is reached.
type FixedPoint struct {
	MaxIterations    int
	IncludeTrackOnly bool
	Log              catalog.Logger
}

// Refine implements Refiner.
func (f FixedPoint) Refine(in Input) Result {
	log := catalog.OrNop(f.Log)
	limit := f.MaxIterations
	if limit <= 0 {
		limit = 21
	}

	processedArtists, processedAlbums := newNameSet(), newNameSet()
	pendingArtists, pendingAlbums := newNameSet(in.Artists...), newNameSet(in.Albums...)

	var pool []catalog.Candidate
	inPool := make(map[catalog.RowID]bool)
	addToPool := func(r catalog.NormalizedRow) {
		if inPool[r.ID()] {
			return
		}
		inPool[r.ID()] = true
		pool = append(pool, catalog.Candidate{NormalizedRow: r, RefineTier: 1})
	}

	res := Result{}
	for len(pendingArtists) > 0 || len(pendingAlbums) > 0 {
		if res.Iterations == limit {
			res.Capped = true
			log.Warnf("Refining %q stopped after %d iterations with %d artist and %d album names still pending",
				in.Song, limit, len(pendingArtists), len(pendingAlbums))
			break
		}
		res.Iterations++

		for _, r := range in.Rows {
			if pendingArtists.has(r.CleanArtist) {
				addToPool(r)
			}
		}
		for _, r := range in.Rows {
			if pendingAlbums.has(r.CleanAlbum) {
				addToPool(r)
			}
		}

		processedArtists.union(pendingArtists)
		processedAlbums.union(pendingAlbums)

		seenArtists, seenAlbums := newNameSet(), newNameSet()
		for _, c := range pool {
			seenArtists.add(c.CleanArtist)
			seenAlbums.add(c.CleanAlbum)
		}
		pendingArtists = seenArtists.minus(processedArtists)
		pendingAlbums = seenAlbums.minus(processedAlbums)

		log.Debugf("Refining %q, iteration %d: pool=%d artists=%d albums=%d",
			in.Song, res.Iterations, len(pool), len(processedArtists), len(processedAlbums))
	}

	for i := range pool {
		pool[i].RefineComment = comment(pool[i].NormalizedRow, processedArtists, processedAlbums)
	}

	if f.IncludeTrackOnly {
		song := catalog.Clean(in.Song)
		for _, r := range in.Rows {
			if inPool[r.ID()] || r.CleanTrack != song {
				continue
			}
			if processedArtists.has(r.CleanArtist) || processedAlbums.has(r.CleanAlbum) {
				continue
			}
			inPool[r.ID()] = true
			pool = append(pool, catalog.Candidate{NormalizedRow: r, RefineComment: CommentTrackOnly, RefineTier: 2})
		}
	}

	res.Candidates = pool
	res.ProcessedArtists = processedArtists.sorted()
	res.ProcessedAlbums = processedAlbums.sorted()
	return res
}

func comment(r catalog.NormalizedRow, artists, albums nameSet) string {
	var reasons []string
	if albums.has(r.CleanAlbum) {
		reasons = append(reasons, CommentAlbum)
	}
	if artists.has(r.CleanArtist) {
		reasons = append(reasons, CommentArtist)
	}
	return strings.Join(reasons, "; ")
}

// Tiered ranks rows by how much of the declared identity they share, without
// expanding names: track and artist (1), track and album (2), track only (3).
// Rows above IncludeLevel are discarded.
type Tiered struct {
	IncludeLevel int
	Log          catalog.Logger
}

// Refine implements Refiner.
func (t Tiered) Refine(in Input) Result {
	log := catalog.OrNop(t.Log)
	level := t.IncludeLevel
	if level <= 0 {
		level = 3
	}
	song := catalog.Clean(in.Song)
	artists, albums := newNameSet(in.Artists...), newNameSet(in.Albums...)

	tiers := make([][]catalog.Candidate, 3)
	for _, r := range in.Rows {
		if r.CleanTrack != song {
			continue
		}
		switch {
		case artists.has(r.CleanArtist):
			tiers[0] = append(tiers[0], catalog.Candidate{NormalizedRow: r, RefineComment: "Track name exact match and " + CommentArtist, RefineTier: 1})
		case albums.has(r.CleanAlbum):
			tiers[1] = append(tiers[1], catalog.Candidate{NormalizedRow: r, RefineComment: "Track name exact match and " + CommentAlbum, RefineTier: 2})
		default:
			tiers[2] = append(tiers[2], catalog.Candidate{NormalizedRow: r, RefineComment: CommentTrackOnly, RefineTier: 3})
		}
	}

	res := Result{Iterations: 1, ProcessedArtists: artists.sorted(), ProcessedAlbums: albums.sorted()}
	for i, tier := range tiers {
		log.Debugf("Refining %q: %d rows at level %d", in.Song, len(tier), i+1)
		if i+1 <= level {
			res.Candidates = append(res.Candidates, tier...)
		}
	}
	return res
}

// Registry maps platforms to their refine strategy.
type Registry struct {
	byPlatform map[string]Refiner
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byPlatform: make(map[string]Refiner)}
}

// Register sets the strategy for a platform.
func (r *Registry) Register(platform string, refiner Refiner) {
	r.byPlatform[platform] = refiner
}

// Lookup returns the platform's strategy or ErrNoRefiner.
func (r *Registry) Lookup(platform string) (Refiner, error) {
	ref, ok := r.byPlatform[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRefiner, platform)
	}
	return ref, nil
}

// Strategy builds a named refine strategy.
func Strategy(name string, s config.RefineSettings, log catalog.Logger) (Refiner, error) {
	switch name {
	case config.RefineFixedPoint, "":
		return FixedPoint{MaxIterations: s.MaxIterations, IncludeTrackOnly: s.IncludeTrackOnly, Log: log}, nil
	case config.RefineTiered:
		return Tiered{IncludeLevel: s.IncludeLevel, Log: log}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrNoRefiner, name)
	}
}

// RegistryFor registers the configured strategy of every enabled platform.
func RegistryFor(cfg *config.Config, log catalog.Logger) (*Registry, error) {
	reg := NewRegistry()
	for _, p := range cfg.Platforms() {
		ref, err := Strategy(p.Refine, cfg.Refine(), log)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", p.Name, err)
		}
		reg.Register(p.Name, ref)
	}
	return reg, nil
}
