package normalize

import (
	"testing"

	"github.com/cmaudit/claimscope/pkg/catalog"
)

func TestParseTitle(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		track   string
		extra   string
		version string
	}{
		{
			name:    "feature credit and instrumental suffix",
			raw:     "El Dorado (feat. Thomas Bergersen) - Instrumental",
			track:   "el dorado",
			extra:   "thomas bergersen",
			version: "instrumental",
		},
		{
			name:    "plain title",
			raw:     "  Victory ",
			track:   "victory",
			version: "generic",
		},
		{
			name:    "full-width brackets",
			raw:     "Heart of Courage（Live）",
			track:   "heart of courage",
			version: "live",
		},
		{
			name:    "several trailing brackets",
			raw:     "Protectors of the Earth (Live) [Remastered]",
			track:   "protectors of the earth",
			version: "live,remastered",
		},
		{
			name:    "bracketed credit with two artists",
			raw:     "Star Sky [ft. Felicia Farerre & Merethe Soltvedt]",
			track:   "star sky",
			extra:   "felicia farerre,merethe soltvedt",
			version: "generic",
		},
		{
			name:    "trailing feature without brackets",
			raw:     "Never Back Down feat. Merethe Soltvedt",
			track:   "never back down",
			extra:   "merethe soltvedt",
			version: "generic",
		},
		{
			name:    "ep suffix",
			raw:     "Strength of a Thousand Men - EP",
			track:   "strength of a thousand men",
			version: "ep",
		},
		{
			name:    "misc suffix",
			raw:     "Archangel - Choir Only",
			track:   "archangel",
			version: "choir only",
		},
		{
			name:    "hyphenated word is not a suffix",
			raw:     "Re-Birth",
			track:   "re-birth",
			version: "generic",
		},
		{
			name:    "bare feat is part of the title",
			raw:     "A Feat Of Clay",
			track:   "a feat of clay",
			version: "generic",
		},
		{
			name:    "trailing featuring without brackets",
			raw:     "Wings featuring Merethe Soltvedt",
			track:   "wings",
			extra:   "merethe soltvedt",
			version: "generic",
		},
		{
			name:    "full-width letters",
			raw:     "Ｖｉｃｔｏｒｙ（Ｌｉｖｅ）",
			track:   "victory",
			version: "live",
		},
		{
			name:    "katakana is kept in standard form",
			raw:     "アイノカタチ",
			track:   "アイノカタチ",
			version: "generic",
		},
		{
			name:    "half-width katakana is widened",
			raw:     "ｱｲﾉｶﾀﾁ",
			track:   "アイノカタチ",
			version: "generic",
		},
		{
			name:    "with is only a credit when followed by a name",
			raw:     "Without You (With Nick Phoenix)",
			track:   "without you",
			extra:   "nick phoenix",
			version: "generic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTitle(tt.raw)
			if got.Track != tt.track {
				t.Errorf("track: expected %q, got %q", tt.track, got.Track)
			}
			if got.AdditionalArtists != tt.extra {
				t.Errorf("additional artists: expected %q, got %q", tt.extra, got.AdditionalArtists)
			}
			if got.Version() != tt.version {
				t.Errorf("version: expected %q, got %q", tt.version, got.Version())
			}
		})
	}
}

func TestParseTitleIdempotent(t *testing.T) {
	for _, raw := range []string{"el dorado", "victory", "heart of courage", "strength of a thousand men"} {
		first := ParseTitle(raw)
		if first.Track != raw {
			t.Fatalf("normalizing clean title %q changed it to %q", raw, first.Track)
		}
		second := ParseTitle(first.Track)
		if second != first {
			t.Fatalf("second pass differs for %q: %+v vs %+v", raw, first, second)
		}
	}
}

func TestArtist(t *testing.T) {
	tests := []struct {
		raw, extra, want string
	}{
		{`Two Steps From Hell`, "", "two steps from hell"},
		{`{"Thomas Bergersen"}, Nick Phoenix`, "", "nick phoenix,thomas bergersen"},
		{`Nick Phoenix|Thomas Bergersen，Nick Phoenix`, "merethe soltvedt", "merethe soltvedt,nick phoenix,thomas bergersen"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := Artist(tt.raw, tt.extra); got != tt.want {
			t.Errorf("Artist(%q, %q) = %q, want %q", tt.raw, tt.extra, got, tt.want)
		}
	}

	// Already normalized artist fields are fixed points.
	for _, tt := range tests {
		if got := Artist(tt.want, ""); got != tt.want {
			t.Errorf("Artist(%q) not idempotent: %q", tt.want, got)
		}
	}
}

func TestRow(t *testing.T) {
	row := Row(catalog.PlatformSongRow{
		Platform: "kugou",
		SongID:   "1",
		Track:    "El Dorado (feat. Thomas Bergersen) - Instrumental",
		Artist:   "Two Steps From Hell",
		Album:    " Archangel ",
	})
	if row.CleanTrack != "el dorado" {
		t.Fatalf("unexpected track %q", row.CleanTrack)
	}
	if row.CleanArtist != "thomas bergersen,two steps from hell" {
		t.Fatalf("unexpected artist %q", row.CleanArtist)
	}
	if row.CleanAlbum != "archangel" {
		t.Fatalf("unexpected album %q", row.CleanAlbum)
	}
	if row.CleanVersion != "instrumental" || row.VersionInstrumental != "instrumental" {
		t.Fatalf("unexpected version fields %q / %q", row.CleanVersion, row.VersionInstrumental)
	}
	if row.SongID != "1" || row.Platform != "kugou" {
		t.Fatalf("raw row not carried through: %+v", row.PlatformSongRow)
	}
}

func TestRowFoldsWidth(t *testing.T) {
	row := Row(catalog.PlatformSongRow{Platform: "kugou", SongID: "1", Track: "アイノカタチ", Artist: "MISIA、HIDE", Album: "ＬＯＶＥ"})
	if row.CleanTrack != "アイノカタチ" || row.CleanArtist != "misia、hide" || row.CleanAlbum != "love" {
		t.Fatalf("unexpected folding: track %q artist %q album %q", row.CleanTrack, row.CleanArtist, row.CleanAlbum)
	}
	if got := catalog.Clean(" ＭＩＳＩＡ、ＨＩＤＥ "); got != row.CleanArtist {
		t.Fatalf("client side cleaning %q differs from platform side %q", got, row.CleanArtist)
	}
}
