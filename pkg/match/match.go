// Package match assigns refined platform rows to the client's declared songs
// by ordered exact-match tiers.
package match

import (
	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
)

// Outcome splits a candidate pool into confident matches, track-only
// matches and rows that share nothing with any client row.
type Outcome struct {
	Matched   []catalog.MatchResult
	Unmatched []catalog.MatchResult
	Dropped   []catalog.Candidate
}

// Matcher matches candidates against client rows.
type Matcher struct {
	Aliases config.Aliases
	Log     catalog.Logger
}

type clientView struct {
	rec      *catalog.ClientSongRecord
	track    string
	version  string
	artists  map[string]bool
	album    string
	declared map[string]bool // canonical versions declared for the track
}

func (m Matcher) views(clients []catalog.ClientSongRecord) []clientView {
	declared := make(map[string]map[string]bool)
	for _, c := range clients {
		track := catalog.Clean(c.Track)
		if declared[track] == nil {
			declared[track] = make(map[string]bool)
		}
		declared[track][m.Aliases.Canonical(c.Version)] = true
	}

	out := make([]clientView, 0, len(clients))
	for i := range clients {
		c := &clients[i]
		v := clientView{
			rec:     c,
			track:   catalog.Clean(c.Track),
			version: m.Aliases.Canonical(c.Version),
			artists: make(map[string]bool),
			album:   catalog.Clean(c.Album),
		}
		v.declared = declared[v.track]
		for _, a := range catalog.SplitNames(c.Artist) {
			v.artists[a] = true
		}
		out = append(out, v)
	}
	return out
}

func (m Matcher) facts(p catalog.Candidate, c clientView) facts {
	f := facts{
		track: p.CleanTrack != "" && p.CleanTrack == c.track,
		album: p.CleanAlbum != "" && p.CleanAlbum == c.album,
	}

	pv := m.Aliases.Canonical(p.CleanVersion)
	// A generic claim also covers platform versions the client does not
	// declare separately for this track.
	f.version = pv == c.version || (c.version == catalog.GenericVersion && !c.declared[pv])

	for _, a := range catalog.SplitNames(p.CleanArtist) {
		if c.artists[a] {
			f.artist = true
			break
		}
	}
	return f
}

// Match assigns every candidate its best tier across all client rows. Rows
// with the same platform id are collapsed to their best tier; the first
// client row wins ties.
func (m Matcher) Match(clients []catalog.ClientSongRecord, pool []catalog.Candidate) Outcome {
	log := catalog.OrNop(m.Log)
	views := m.views(clients)

	best := make(map[catalog.RowID]catalog.MatchResult)
	var order []catalog.RowID
	var out Outcome

	for _, cand := range pool {
		var (
			found  bool
			picked tier
			client *catalog.ClientSongRecord
		)
		for _, v := range views {
			t, ok := classify(m.facts(cand, v))
			if !ok {
				continue
			}
			if !found || t.level < picked.level {
				found, picked, client = true, t, v.rec
			}
			if picked.level == 1 {
				break
			}
		}

		if !found {
			log.Warnf("Dropping %s row %s (%q by %q): no client row shares its track name",
				cand.Platform, cand.SongID, cand.Track, cand.Artist)
			out.Dropped = append(out.Dropped, cand)
			continue
		}

		res := catalog.MatchResult{Candidate: cand, Tier: picked.level, Reason: picked.reason}
		if picked.matched {
			res.Client = client
			res.JointKey = jointKey(cand, client)
		}

		id := cand.ID()
		prev, seen := best[id]
		if !seen {
			order = append(order, id)
			best[id] = res
			continue
		}
		if res.Tier < prev.Tier {
			best[id] = res
		}
	}

	for _, id := range order {
		res := best[id]
		if res.Matched() {
			out.Matched = append(out.Matched, res)
		} else {
			out.Unmatched = append(out.Unmatched, res)
		}
	}

	if overlap := Overlap(out); len(overlap) > 0 {
		log.Errorf("Rows present in both matched and unmatched results: %v", overlap)
	}
	return out
}

func jointKey(p catalog.Candidate, c *catalog.ClientSongRecord) string {
	return p.ID().String() + "#" + c.SongID + "/" + c.VersionID
}

// Overlap returns the platform row ids present in both the matched and the
// unmatched results.
func Overlap(o Outcome) []catalog.RowID {
	matched := make(map[catalog.RowID]bool, len(o.Matched))
	for _, r := range o.Matched {
		matched[r.ID()] = true
	}
	var both []catalog.RowID
	for _, r := range o.Unmatched {
		if matched[r.ID()] {
			both = append(both, r.ID())
		}
	}
	return both
}
