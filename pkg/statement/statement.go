// Package statement loads the client's declared catalog from a CSV export.
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
)

// ErrMissingColumn is returned when a required header cell is absent.
var ErrMissingColumn = errors.New("statement is missing a required column")

// Statement is a loaded client statement.
type Statement struct {
	Records []catalog.ClientSongRecord
	// Blank holds rows without a track name. They are reported separately
	// and never matched.
	Blank []catalog.ClientSongRecord
}

// Song is every statement row declaring the same track.
type Song struct {
	Name    string
	Records []catalog.ClientSongRecord
}

// Artists returns the distinct declared artist names of the song.
func (s Song) Artists() []string {
	var all []string
	for _, r := range s.Records {
		all = append(all, catalog.SplitNames(r.Artist)...)
	}
	return distinct(all)
}

// Albums returns the distinct declared album names of the song.
func (s Song) Albums() []string {
	var all []string
	for _, r := range s.Records {
		if a := catalog.Clean(r.Album); a != "" {
			all = append(all, a)
		}
	}
	return distinct(all)
}

func distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// ReadFile reads a statement from a CSV file.
func ReadFile(path string, cols config.StatementColumns) (*Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := Read(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

// Read parses a statement. The first row must be the header.
func Read(r io.Reader, cols config.StatementColumns) (*Statement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return &Statement{}, nil
		}
		return nil, fmt.Errorf("could not read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(name string, required bool) (int, error) {
		i, ok := idx[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			if required {
				return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
			}
			return -1, nil
		}
		return i, nil
	}

	var pos struct{ track, version, artist, album, platform, revenue, streams, songID, versionID int }
	for _, c := range []struct {
		dst      *int
		name     string
		required bool
	}{
		{&pos.track, cols.Track, true},
		{&pos.version, cols.Version, true},
		{&pos.artist, cols.Artist, true},
		{&pos.album, cols.Album, true},
		{&pos.platform, cols.Platform, true},
		{&pos.revenue, cols.Revenue, true},
		{&pos.streams, cols.Streams, true},
		{&pos.songID, cols.SongID, false},
		{&pos.versionID, cols.VersionID, false},
	} {
		if *c.dst, err = col(c.name, c.required); err != nil {
			return nil, err
		}
	}

	st := &Statement{}
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := catalog.ClientSongRecord{
			Track:         cell(pos.track),
			Version:       catalog.CleanVersion(cell(pos.version)),
			Artist:        cell(pos.artist),
			Album:         cell(pos.album),
			ClaimPlatform: cell(pos.platform),
			SongID:        cell(pos.songID),
			VersionID:     cell(pos.versionID),
			Line:          line,
		}
		if rec.Revenue, err = parseAmount(cell(pos.revenue)); err != nil {
			return nil, fmt.Errorf("line %d: revenue: %w", line, err)
		}
		streams, err := parseAmount(cell(pos.streams))
		if err != nil {
			return nil, fmt.Errorf("line %d: streams: %w", line, err)
		}
		rec.Streams = int64(streams)

		if rec.Track == "" {
			st.Blank = append(st.Blank, rec)
			continue
		}
		st.Records = append(st.Records, rec)
	}
	return st, nil
}

var amountNoise = strings.NewReplacer(",", "", "$", "", "€", "", "¥", "", " ", "")

func parseAmount(s string) (float64, error) {
	s = amountNoise.Replace(s)
	if s == "" || strings.EqualFold(s, "na") || s == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// FilterArtist keeps the records that declare the given artist.
func (s *Statement) FilterArtist(name string) *Statement {
	want := catalog.Clean(name)
	keep := func(recs []catalog.ClientSongRecord) []catalog.ClientSongRecord {
		var out []catalog.ClientSongRecord
		for _, r := range recs {
			for _, a := range catalog.SplitNames(r.Artist) {
				if a == want {
					out = append(out, r)
					break
				}
			}
		}
		return out
	}
	return &Statement{Records: keep(s.Records), Blank: keep(s.Blank)}
}

// Songs groups the records by track name in first-seen order.
func (s *Statement) Songs() []Song {
	byName := make(map[string]int)
	var songs []Song
	for _, r := range s.Records {
		name := catalog.Clean(r.Track)
		i, ok := byName[name]
		if !ok {
			i = len(songs)
			byName[name] = i
			songs = append(songs, Song{Name: name})
		}
		songs[i].Records = append(songs[i].Records, r)
	}
	return songs
}
