// Package normalize cleans raw platform track, artist and album strings and
// extracts the feature credits and version tags embedded in track titles.
package normalize

import (
	"regexp"
	"strings"

	"github.com/cmaudit/claimscope/pkg/catalog"
)

type attribute int

const (
	additionalArtist attribute = iota
	versionInstrumental
	versionGeneral
	versionEP
	versionMisc
)

type extraction struct {
	attr attribute
	re   *regexp.Regexp
}

// Order matters: each pattern runs on the title left by the previous ones.
var extractions = []extraction{
	{additionalArtist, regexp.MustCompile(`(?i)\s*[(\[]\s*(?:(?:featuring|feat|ft|with)[.\s]|w/)\s*([^()\[\]]+?)\s*[)\]]`)},
	{additionalArtist, regexp.MustCompile(`(?i)\s+(?:featuring\s|feat\.|ft\.)\s*([^()\[\]\-~#+]+)`)},
	{versionInstrumental, regexp.MustCompile(`(?i)\s*-\s*(instrumental)\b`)},
	{versionGeneral, regexp.MustCompile(`\s*[(\[]([^()\[\]]*)[)\]]\s*$`)},
	{versionEP, regexp.MustCompile(`(?i)\s*-\s*(ep)\b`)},
	{versionMisc, regexp.MustCompile(`\s*(?:\s-|[#~+])\s*(.*)$`)},
}

var spaces = regexp.MustCompile(`\s+`)

// Title is the result of cleaning a raw track title.
type Title struct {
	Track             string
	AdditionalArtists string
	Instrumental      string
	General           string
	EP                string
	Misc              string
}

// Version joins the extracted version tags in column order, defaulting to
// the generic version.
func (t Title) Version() string {
	var parts []string
	for _, p := range []string{t.Instrumental, t.General, t.EP, t.Misc} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return catalog.CleanVersion(strings.Join(parts, ", "))
}

// ParseTitle strips feature credits and version tags from a raw title.
func ParseTitle(raw string) Title {
	s := collapse(catalog.Fold(raw))
	tokens := make(map[attribute][]string)

	for _, ex := range extractions {
		for ex.re.MatchString(s) {
			for _, m := range ex.re.FindAllStringSubmatch(s, -1) {
				tokens[ex.attr] = append(tokens[ex.attr], splitToken(ex.attr, m[1])...)
			}
			s = collapse(ex.re.ReplaceAllString(s, " "))
		}
	}

	return Title{
		Track:             catalog.Clean(s),
		AdditionalArtists: catalog.JoinSorted(tokens[additionalArtist]),
		Instrumental:      catalog.JoinSorted(tokens[versionInstrumental]),
		General:           catalog.JoinSorted(tokens[versionGeneral]),
		EP:                catalog.JoinSorted(tokens[versionEP]),
		Misc:              catalog.JoinSorted(tokens[versionMisc]),
	}
}

func splitToken(attr attribute, tok string) []string {
	if attr != additionalArtist {
		if t := cleanToken(tok); t != "" {
			return []string{t}
		}
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(tok, func(r rune) bool {
		return r == ',' || r == '&' || r == '，' || r == '|'
	}) {
		if t := cleanToken(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func cleanToken(s string) string {
	return catalog.Clean(strings.Trim(s, " ."))
}

var artistNoise = strings.NewReplacer("{", "", "}", "", `"`, "")

// Artist cleans a raw artist field and merges in extracted feature credits.
// The result is sorted, de-duplicated and comma-joined.
func Artist(raw, additional string) string {
	names := catalog.SplitNames(artistNoise.Replace(catalog.Fold(raw)))
	names = append(names, catalog.SplitNames(additional)...)
	return catalog.JoinSorted(names)
}

// Album folds, lower-cases and trims an album name.
func Album(raw string) string {
	return catalog.Clean(collapse(catalog.Fold(raw)))
}

// Row derives the normalized fields of a platform row.
func Row(r catalog.PlatformSongRow) catalog.NormalizedRow {
	t := ParseTitle(r.Track)
	return catalog.NormalizedRow{
		PlatformSongRow:     r,
		CleanTrack:          t.Track,
		CleanArtist:         Artist(r.Artist, t.AdditionalArtists),
		CleanAlbum:          Album(r.Album),
		CleanVersion:        t.Version(),
		AdditionalArtists:   t.AdditionalArtists,
		VersionInstrumental: t.Instrumental,
		VersionGeneral:      t.General,
		VersionEP:           t.EP,
		VersionMisc:         t.Misc,
	}
}

// Rows normalizes a batch of platform rows.
func Rows(rows []catalog.PlatformSongRow) []catalog.NormalizedRow {
	out := make([]catalog.NormalizedRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row(r))
	}
	return out
}

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
