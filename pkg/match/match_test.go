package match

import (
	"fmt"
	"testing"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/normalize"
	"github.com/cmaudit/claimscope/pkg/refine"
)

func cand(id, track, version, artist, album string) catalog.Candidate {
	return catalog.Candidate{
		NormalizedRow: catalog.NormalizedRow{
			PlatformSongRow: catalog.PlatformSongRow{Platform: "kugou", SongID: id, Track: track, Artist: artist, Album: album},
			CleanTrack:      track,
			CleanVersion:    version,
			CleanArtist:     artist,
			CleanAlbum:      album,
		},
		RefineTier: 1,
	}
}

func newMatcher() Matcher {
	return Matcher{Aliases: config.Default().Aliases()}
}

func TestVictoryScenario(t *testing.T) {
	clients := []catalog.ClientSongRecord{
		{Track: "Victory", Version: "generic", Artist: "Two Steps From Hell", Album: "Archangel", SongID: "S1", VersionID: "V1"},
	}
	pool := []catalog.Candidate{
		cand("1", "victory", "generic", "two steps from hell", "archangel"),
		cand("2", "victory", "generic", "unknown producer", "other"),
	}

	out := newMatcher().Match(clients, pool)
	if len(out.Matched) != 1 || out.Matched[0].SongID != "1" || out.Matched[0].Tier != 1 {
		t.Fatalf("expected row 1 matched at tier 1, got %+v", out.Matched)
	}
	if out.Matched[0].Client == nil || out.Matched[0].Client.SongID != "S1" {
		t.Fatalf("matched row lost its client row: %+v", out.Matched[0])
	}
	if out.Matched[0].JointKey != "kugou:1#S1/V1" {
		t.Fatalf("unexpected joint key %q", out.Matched[0].JointKey)
	}
	if len(out.Unmatched) != 1 || out.Unmatched[0].SongID != "2" || out.Unmatched[0].Tier != 4 {
		t.Fatalf("expected row 2 unmatched at tier 4, got %+v", out.Unmatched)
	}
	if out.Unmatched[0].Reason != ReasonTrackOnly {
		t.Fatalf("unexpected reason %q", out.Unmatched[0].Reason)
	}
}

func TestLowestTierWins(t *testing.T) {
	// Row 1 is tier 3 against the first client row (other album, other
	// version) and tier 1 against the second.
	clients := []catalog.ClientSongRecord{
		{Track: "El Dorado", Version: "instrumental", Artist: "Two Steps From Hell", Album: "Skyworld"},
		{Track: "El Dorado", Version: "", Artist: "Two Steps From Hell, Thomas Bergersen", Album: "Archangel"},
	}
	pool := []catalog.Candidate{cand("1", "el dorado", "generic", "thomas bergersen,two steps from hell", "archangel")}

	for _, order := range [][]catalog.ClientSongRecord{clients, {clients[1], clients[0]}} {
		out := newMatcher().Match(order, pool)
		if len(out.Matched) != 1 || out.Matched[0].Tier != 1 {
			t.Fatalf("expected a single tier 1 match, got %+v", out.Matched)
		}
		if out.Matched[0].Client.Album != "Archangel" {
			t.Fatalf("matched the wrong client row: %+v", out.Matched[0].Client)
		}
	}
}

func TestTiers(t *testing.T) {
	clients := []catalog.ClientSongRecord{
		{Track: "El Dorado", Version: "generic", Artist: "Two Steps From Hell", Album: "Archangel"},
		{Track: "El Dorado", Version: "Instrumental", Artist: "Two Steps From Hell", Album: "Archangel"},
	}
	tests := []struct {
		name   string
		row    catalog.Candidate
		tier   int
		reason string
	}{
		{"exact", cand("1", "el dorado", "generic", "two steps from hell", "archangel"), 1, ReasonExact},
		{"album differs", cand("2", "el dorado", "generic", "two steps from hell", "skyworld"), 2, ReasonNoAlbum},
		{"aliased version", cand("3", "el dorado", "inst", "two steps from hell", "archangel"), 1, ReasonExact},
		{"undeclared version falls under generic", cand("4", "el dorado", "live", "two steps from hell", "archangel"), 1, ReasonExact},
		{"co-artist intersects", cand("5", "el dorado", "generic", "merethe soltvedt,two steps from hell", ""), 2, ReasonNoAlbum},
		{"track only", cand("6", "el dorado", "generic", "someone else", "archangel"), 4, ReasonTrackOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newMatcher().Match(clients, []catalog.Candidate{tt.row})
			all := append(append([]catalog.MatchResult{}, out.Matched...), out.Unmatched...)
			if len(all) != 1 {
				t.Fatalf("expected one result, got %+v", out)
			}
			if all[0].Tier != tt.tier || all[0].Reason != tt.reason {
				t.Fatalf("expected tier %d (%s), got tier %d (%s)", tt.tier, tt.reason, all[0].Tier, all[0].Reason)
			}
		})
	}
}

func TestVersionAliasPicksDeclaredVersion(t *testing.T) {
	clients := []catalog.ClientSongRecord{
		{Track: "El Dorado", Version: "generic", Artist: "Two Steps From Hell", Album: "Archangel", VersionID: "gen"},
		{Track: "El Dorado", Version: "Instrumental", Artist: "Two Steps From Hell", Album: "Archangel", VersionID: "inst"},
	}
	out := newMatcher().Match(clients, []catalog.Candidate{cand("1", "el dorado", "inst", "two steps from hell", "archangel")})
	if len(out.Matched) != 1 || out.Matched[0].Client.VersionID != "inst" {
		t.Fatalf("instrumental row should match the declared instrumental version, got %+v", out.Matched)
	}
}

func TestDroppedRows(t *testing.T) {
	clients := []catalog.ClientSongRecord{{Track: "Victory", Artist: "Two Steps From Hell"}}
	out := newMatcher().Match(clients, []catalog.Candidate{cand("9", "heart of courage", "generic", "two steps from hell", "")})
	if len(out.Matched)+len(out.Unmatched) != 0 || len(out.Dropped) != 1 {
		t.Fatalf("expected the row to be dropped, got %+v", out)
	}

	// A version no client row declares still keeps the row out of Dropped.
	clients = []catalog.ClientSongRecord{{Track: "El Dorado", Version: "Instrumental", Artist: "Two Steps From Hell"}}
	for _, row := range []catalog.Candidate{
		cand("10", "el dorado", "live", "two steps from hell", ""),
		cand("11", "el dorado", "live", "someone else", ""),
	} {
		out = newMatcher().Match(clients, []catalog.Candidate{row})
		if len(out.Dropped) != 0 || len(out.Matched)+len(out.Unmatched) != 1 {
			t.Fatalf("row %s shares the track name and must not be dropped, got %+v", row.SongID, out)
		}
	}
}

func TestDisjoint(t *testing.T) {
	clients := []catalog.ClientSongRecord{
		{Track: "Victory", Version: "generic", Artist: "Two Steps From Hell", Album: "Archangel"},
		{Track: "Victory", Version: "live", Artist: "Thomas Bergersen", Album: "Illusions"},
	}
	artists := []string{"two steps from hell", "thomas bergersen", "nobody"}
	albums := []string{"archangel", "illusions", ""}
	versions := []string{"generic", "live", "remix"}

	var pool []catalog.Candidate
	for i := 0; i < 60; i++ {
		// Ids repeat so the same row shows up with different identities.
		id := fmt.Sprint(i % 17)
		pool = append(pool, cand(id, "victory", versions[i%3], artists[(i/3)%3], albums[(i/9)%3]))
	}

	out := newMatcher().Match(clients, pool)
	if overlap := Overlap(out); len(overlap) != 0 {
		t.Fatalf("matched and unmatched overlap on %v", overlap)
	}
	seen := make(map[catalog.RowID]int)
	for _, r := range append(append([]catalog.MatchResult{}, out.Matched...), out.Unmatched...) {
		seen[r.ID()]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("row %s reported %d times", id, n)
		}
	}
	if len(seen) != 17 {
		t.Fatalf("expected 17 distinct rows, got %d", len(seen))
	}
}

func TestWidthVariantsMatch(t *testing.T) {
	tests := []struct {
		name     string
		platform catalog.PlatformSongRow
		client   catalog.ClientSongRecord
	}{
		{
			name:     "katakana title with ideographic comma",
			platform: catalog.PlatformSongRow{Platform: "kugou", SongID: "k1", Track: "アイノカタチ", Artist: "MISIA、HIDE", Album: "ＬＯＶＥ"},
			client:   catalog.ClientSongRecord{Track: "アイノカタチ", Artist: "MISIA、HIDE", Album: "LOVE", SongID: "S1", VersionID: "V1"},
		},
		{
			name:     "full-width client names",
			platform: catalog.PlatformSongRow{Platform: "kugou", SongID: "k2", Track: "Victory", Artist: "Two Steps From Hell", Album: "Archangel"},
			client:   catalog.ClientSongRecord{Track: "Ｖｉｃｔｏｒｙ", Artist: "Ｔｗｏ Ｓｔｅｐｓ Ｆｒｏｍ Ｈｅｌｌ", Album: "Ａｒｃｈａｎｇｅｌ", SongID: "S2", VersionID: "V2"},
		},
		{
			name:     "half-width kana on the platform",
			platform: catalog.PlatformSongRow{Platform: "kugou", SongID: "k3", Track: "ｱｲﾉｶﾀﾁ", Artist: "MISIA", Album: "LOVE"},
			client:   catalog.ClientSongRecord{Track: "アイノカタチ", Artist: "MISIA", Album: "LOVE", SongID: "S3", VersionID: "V3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := refine.FixedPoint{MaxIterations: 21}.Refine(refine.Input{
				Song:    tt.client.Track,
				Artists: catalog.SplitNames(tt.client.Artist),
				Albums:  []string{catalog.Clean(tt.client.Album)},
				Rows:    []catalog.NormalizedRow{normalize.Row(tt.platform)},
			})
			if len(res.Candidates) != 1 {
				t.Fatalf("expected the platform row to survive refinement, got %+v", res.Candidates)
			}

			out := newMatcher().Match([]catalog.ClientSongRecord{tt.client}, res.Candidates)
			if len(out.Dropped) != 0 || len(out.Matched) != 1 || out.Matched[0].Tier != 1 {
				t.Fatalf("expected a tier 1 match, got matched=%+v dropped=%+v", out.Matched, out.Dropped)
			}
		})
	}
}
