// Package summary rolls matched rows up into per song, version and platform
// statistics and merges them with the client's own claim figures.
package summary

import (
	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
)

// UnspecifiedPlatform labels client rows that name no claim platform.
const UnspecifiedPlatform = "unspecified"

// Summarizer builds song summaries over a fixed set of in-scope platforms.
type Summarizer struct {
	Platforms []string
	Aliases   config.Aliases
}

type songAcc struct {
	summary   catalog.SongSummary
	platforms map[string]*catalog.PlatformSummary
	claims    map[string]*catalog.ClaimFigure
	claimKeys []string
}

func (s Summarizer) key(track, version string) catalog.SongKey {
	return catalog.SongKey{Track: catalog.Clean(track), Version: s.Aliases.Canonical(version)}
}

// Summarize returns one summary per declared (song, version), in statement
// order. Every in-scope platform appears in every summary, zero-filled when
// it had no matches.
func (s Summarizer) Summarize(matched []catalog.MatchResult, clients []catalog.ClientSongRecord) []catalog.SongSummary {
	platforms := append([]string(nil), s.Platforms...)
	inScope := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		inScope[p] = true
	}
	for _, m := range matched {
		if !inScope[m.Platform] {
			inScope[m.Platform] = true
			platforms = append(platforms, m.Platform)
		}
	}

	accs := make(map[catalog.SongKey]*songAcc)
	var order []catalog.SongKey
	accFor := func(c catalog.ClientSongRecord) *songAcc {
		k := s.key(c.Track, c.Version)
		if a, ok := accs[k]; ok {
			return a
		}
		a := &songAcc{
			summary: catalog.SongSummary{
				Track:     c.Track,
				Version:   k.Version,
				SongID:    c.SongID,
				VersionID: c.VersionID,
			},
			platforms: make(map[string]*catalog.PlatformSummary),
			claims:    make(map[string]*catalog.ClaimFigure),
		}
		accs[k] = a
		order = append(order, k)
		return a
	}

	for _, c := range clients {
		a := accFor(c)
		label := catalog.Clean(c.ClaimPlatform)
		if label == "" {
			label = UnspecifiedPlatform
		}
		fig, ok := a.claims[label]
		if !ok {
			fig = &catalog.ClaimFigure{Platform: label}
			a.claims[label] = fig
			a.claimKeys = append(a.claimKeys, label)
		}
		fig.Revenue += c.Revenue
		fig.Streams += c.Streams
	}

	for _, m := range matched {
		if m.Client == nil {
			continue
		}
		a := accFor(*m.Client)
		ps, ok := a.platforms[m.Platform]
		if !ok {
			ps = &catalog.PlatformSummary{Platform: m.Platform}
			a.platforms[m.Platform] = ps
		}
		bucket := &ps.Unclaimed
		if Claimed(m, s.Aliases) {
			bucket = &ps.Claimed
		}
		add(bucket, m.PlatformSongRow)
	}

	out := make([]catalog.SongSummary, 0, len(order))
	for _, k := range order {
		a := accs[k]
		sum := a.summary
		for _, p := range platforms {
			ps := catalog.PlatformSummary{Platform: p}
			if got, ok := a.platforms[p]; ok {
				ps = *got
			}
			sum.Platforms = append(sum.Platforms, ps)
		}
		for _, label := range a.claimKeys {
			sum.Claims = append(sum.Claims, *a.claims[label])
		}
		totals(&sum)
		out = append(out, sum)
	}
	return out
}

// Claimed reports whether a matched row's version agrees with the version
// its client row declares.
func Claimed(m catalog.MatchResult, aliases config.Aliases) bool {
	if m.Client == nil {
		return false
	}
	return aliases.Canonical(m.CleanVersion) == aliases.Canonical(m.Client.Version)
}

func add(b *catalog.Bucket, r catalog.PlatformSongRow) {
	b.Count++
	for _, pair := range []struct {
		m   catalog.Metric
		dst *int64
	}{
		{r.Comments, &b.Comments},
		{r.Likes, &b.Favorites},
		{r.Streams(), &b.Streams},
	} {
		if !pair.m.Valid {
			b.Missing++
			continue
		}
		*pair.dst += pair.m.Value
	}
}

func totals(s *catalog.SongSummary) {
	for _, p := range s.Platforms {
		for _, b := range []catalog.Bucket{p.Claimed, p.Unclaimed} {
			s.MatchesDetected += b.Count
			s.TotalComments += b.Comments
			s.TotalFavorites += b.Favorites
			s.TotalStreams += b.Streams
		}
	}
	for _, c := range s.Claims {
		s.TotalRevenue += c.Revenue
		s.TotalStreams += c.Streams
	}
}
