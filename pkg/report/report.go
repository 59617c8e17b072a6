// Package report writes the per-song results of a run as CSV sheets and
// renders console tables.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/summary"
)

// Sheet file names.
const (
	ClientSummaryFile   = "client_summary.csv"
	ClientDetailFile    = "client_detail.csv"
	InternalSummaryFile = "internal_summary.csv"
	InternalDetailFile  = "internal_detail.csv"
	BlankTracksFile     = "empty_track_names.csv"
)

type sheet struct {
	header []string
	rows   [][]string
}

func (s *sheet) add(row ...string) { s.rows = append(s.rows, row) }

// WriteSheets concatenates the song reports into the four result sheets
// under dir and returns the written paths. aliases decide whether a matched
// row is claimed.
func WriteSheets(dir string, reports []catalog.SongReport, aliases config.Aliases) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	layout := newLayout(reports)
	sheets := []struct {
		name string
		s    sheet
	}{
		{ClientSummaryFile, layout.summary(reports, false)},
		{ClientDetailFile, clientDetail(reports, aliases)},
		{InternalSummaryFile, layout.summary(reports, true)},
		{InternalDetailFile, internalDetail(reports, aliases)},
	}

	var paths []string
	for _, sh := range sheets {
		path := filepath.Join(dir, sh.name)
		if err := writeCSV(path, sh.s); err != nil {
			return paths, fmt.Errorf("writing %s: %w", sh.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteBlankTracks writes the statement rows that carry no track name.
func WriteBlankTracks(dir string, records []catalog.ClientSongRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	s := sheet{header: []string{"Line", "Track", "Version", "Artist", "Album", "Platform", "Revenue", "Streams", "Unique Song ID", "Unique Version ID"}}
	for _, r := range records {
		s.add(strconv.Itoa(r.Line), r.Track, r.Version, r.Artist, r.Album, r.ClaimPlatform,
			money(r.Revenue), strconv.FormatInt(r.Streams, 10), r.SongID, r.VersionID)
	}
	path := filepath.Join(dir, BlankTracksFile)
	return path, writeCSV(path, s)
}

func writeCSV(path string, s sheet) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := csv.NewWriter(f)
	if err := w.Write(s.header); err != nil {
		return err
	}
	if err := w.WriteAll(s.rows); err != nil {
		return err
	}
	return w.Error()
}

// layout fixes the platform and claim columns shared by every song so the
// concatenated sheets line up.
type layout struct {
	platforms []string
	claims    []string
}

func newLayout(reports []catalog.SongReport) layout {
	var l layout
	seenP, seenC := make(map[string]bool), make(map[string]bool)
	for _, rep := range reports {
		for _, s := range rep.Summaries {
			for _, p := range s.Platforms {
				if !seenP[p.Platform] {
					seenP[p.Platform] = true
					l.platforms = append(l.platforms, p.Platform)
				}
			}
			for _, c := range s.Claims {
				if !seenC[c.Platform] {
					seenC[c.Platform] = true
					l.claims = append(l.claims, c.Platform)
				}
			}
		}
	}
	return l
}

func (l layout) summary(reports []catalog.SongReport, internal bool) sheet {
	header := []string{"Track", "Version", "Unique Song ID", "Unique Version ID", "Matches Detected"}
	metrics := []string{"matches", "streams"}
	if internal {
		metrics = []string{"matches", "comments", "favorites", "streams", "missing"}
	}
	for _, p := range l.platforms {
		for _, side := range []string{"claimed", "unclaimed"} {
			for _, m := range metrics {
				header = append(header, p+"/"+side+"/"+m)
			}
		}
	}
	for _, c := range l.claims {
		header = append(header, "client/"+c+"/revenue", "client/"+c+"/streams")
	}
	header = append(header, "Total Revenue", "Total Streams")
	if internal {
		header = append(header, "Total Comments", "Total Favorites")
	}

	s := sheet{header: header}
	for _, rep := range reports {
		for _, sum := range rep.Summaries {
			row := []string{sum.Track, sum.Version, sum.SongID, sum.VersionID, strconv.Itoa(sum.MatchesDetected)}
			byPlatform := make(map[string]catalog.PlatformSummary, len(sum.Platforms))
			for _, p := range sum.Platforms {
				byPlatform[p.Platform] = p
			}
			for _, p := range l.platforms {
				ps := byPlatform[p]
				for _, b := range []catalog.Bucket{ps.Claimed, ps.Unclaimed} {
					row = append(row, bucketCells(b, internal)...)
				}
			}
			byClaim := make(map[string]catalog.ClaimFigure, len(sum.Claims))
			for _, c := range sum.Claims {
				byClaim[c.Platform] = c
			}
			for _, c := range l.claims {
				fig := byClaim[c]
				row = append(row, money(fig.Revenue), strconv.FormatInt(fig.Streams, 10))
			}
			row = append(row, money(sum.TotalRevenue), strconv.FormatInt(sum.TotalStreams, 10))
			if internal {
				row = append(row, strconv.FormatInt(sum.TotalComments, 10), strconv.FormatInt(sum.TotalFavorites, 10))
			}
			s.add(row...)
		}
	}
	return s
}

func bucketCells(b catalog.Bucket, internal bool) []string {
	count, streams := strconv.Itoa(b.Count), strconv.FormatInt(b.Streams, 10)
	if !internal {
		return []string{count, streams}
	}
	return []string{count, strconv.FormatInt(b.Comments, 10), strconv.FormatInt(b.Favorites, 10), streams, strconv.Itoa(b.Missing)}
}

// claimedCell is blank for rows without a client row.
func claimedCell(m catalog.MatchResult, aliases config.Aliases) string {
	switch {
	case m.Client == nil:
		return ""
	case summary.Claimed(m, aliases):
		return "yes"
	default:
		return "no"
	}
}

func clientDetail(reports []catalog.SongReport, aliases config.Aliases) sheet {
	s := sheet{header: []string{"Track", "Version", "Unique Song ID", "Unique Version ID", "Platform",
		"Platform Song ID", "Platform Track", "Platform Artist", "Platform Album", "Claimed", "Streams"}}
	for _, rep := range reports {
		for _, m := range rep.Matched {
			c := m.Client
			s.add(c.Track, catalog.CleanVersion(c.Version), c.SongID, c.VersionID, m.Platform,
				m.SongID, m.Track, m.Artist, m.Album, claimedCell(m, aliases), m.Streams().String())
		}
	}
	return s
}

func internalDetail(reports []catalog.SongReport, aliases config.Aliases) sheet {
	s := sheet{header: []string{"Song", "Status", "Claimed", "Tier", "Reason", "Refine Comment", "Joint Key",
		"Client Track", "Client Version", "Platform", "Platform Song ID", "Platform Track", "Platform Artist", "Platform Album",
		"Clean Track", "Clean Version", "Clean Artist", "Clean Album", "Additional Artists",
		"Comments", "Likes", "Streams 1", "Streams 2", "Release Date", "Company"}}
	write := func(song, status string, m catalog.MatchResult) {
		var track, version string
		if m.Client != nil {
			track, version = m.Client.Track, catalog.CleanVersion(m.Client.Version)
		}
		s.add(song, status, claimedCell(m, aliases), strconv.Itoa(m.Tier), m.Reason, m.RefineComment, m.JointKey,
			track, version, m.Platform, m.SongID, m.Track, m.Artist, m.Album,
			m.CleanTrack, m.CleanVersion, m.CleanArtist, m.CleanAlbum, m.AdditionalArtists,
			m.Comments.String(), m.Likes.String(), m.Streams1.String(), m.Streams2.String(), m.ReleaseDate, m.Company)
	}
	for _, rep := range reports {
		for _, m := range rep.Matched {
			write(rep.Song, "matched", m)
		}
		for _, m := range rep.Unmatched {
			write(rep.Song, "unmatched", m)
		}
	}
	return s
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
