package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/storage"
)

func sampleReports() []catalog.SongReport {
	client := &catalog.ClientSongRecord{Track: "Victory", SongID: "S1", VersionID: "V1", ClaimPlatform: "kugou", Revenue: 12.5}
	row := func(platform, id string, streams int64) catalog.MatchResult {
		return catalog.MatchResult{
			Candidate: catalog.Candidate{NormalizedRow: catalog.NormalizedRow{
				PlatformSongRow: catalog.PlatformSongRow{Platform: platform, SongID: id, Track: "Victory", Streams1: catalog.Known(streams)},
				CleanTrack:      "victory",
				CleanVersion:    catalog.GenericVersion,
			}},
			Client: client,
			Tier:   1,
			Reason: "exact",
		}
	}
	// n1 carries a version the client did not declare.
	live := row("netease_max", "n1", 10)
	live.CleanVersion = "live"
	unmatched := row("netease_max", "n2", 5)
	unmatched.Client = nil
	unmatched.Tier = 4

	return []catalog.SongReport{
		{
			Index: 0,
			Song:  "victory",
			Summaries: []catalog.SongSummary{{
				Track: "Victory", Version: catalog.GenericVersion, SongID: "S1", VersionID: "V1",
				MatchesDetected: 2,
				Platforms: []catalog.PlatformSummary{
					{Platform: "netease_max", Unclaimed: catalog.Bucket{Count: 1, Streams: 10}},
					{Platform: "kugou", Claimed: catalog.Bucket{Count: 1, Streams: 50000, Missing: 1}},
				},
				Claims:       []catalog.ClaimFigure{{Platform: "kugou", Revenue: 12.5, Streams: 1000}},
				TotalRevenue: 12.5,
				TotalStreams: 51010,
			}},
			Matched:   []catalog.MatchResult{live, row("kugou", "k1", 50000)},
			Unmatched: []catalog.MatchResult{unmatched},
		},
		{
			Index: 1,
			Song:  "el dorado",
			Summaries: []catalog.SongSummary{{
				Track:        "El Dorado",
				Version:      "instrumental",
				Platforms:    []catalog.PlatformSummary{{Platform: "netease_max"}, {Platform: "kugou"}},
				Claims:       []catalog.ClaimFigure{{Platform: "netease", Revenue: 3, Streams: 100}},
				TotalRevenue: 3,
				TotalStreams: 100,
			}},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return recs
}

func column(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q not in %v", name, header)
	return -1
}

func TestWriteSheets(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteSheets(dir, sampleReports(), config.Default().Aliases())
	if err != nil {
		t.Fatalf("WriteSheets: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 sheets, got %v", paths)
	}

	summary := readCSV(t, filepath.Join(dir, ClientSummaryFile))
	if len(summary) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(summary))
	}
	h := summary[0]
	if got := summary[1][column(t, h, "kugou/claimed/streams")]; got != "50000" {
		t.Fatalf("kugou claimed streams = %q", got)
	}
	// Claim columns are shared across songs and zero-filled.
	if got := summary[1][column(t, h, "client/netease/revenue")]; got != "0.00" {
		t.Fatalf("victory netease revenue = %q", got)
	}
	if got := summary[2][column(t, h, "client/netease/revenue")]; got != "3.00" {
		t.Fatalf("el dorado netease revenue = %q", got)
	}
	for _, c := range h {
		if strings.HasSuffix(c, "/missing") {
			t.Fatalf("client summary exposes internal column %q", c)
		}
	}

	internal := readCSV(t, filepath.Join(dir, InternalSummaryFile))
	if got := internal[1][column(t, internal[0], "kugou/claimed/missing")]; got != "1" {
		t.Fatalf("kugou claimed missing = %q", got)
	}

	detail := readCSV(t, filepath.Join(dir, ClientDetailFile))
	if len(detail) != 3 || detail[1][column(t, detail[0], "Platform Song ID")] != "n1" {
		t.Fatalf("unexpected client detail %v", detail)
	}
	claimed := column(t, detail[0], "Claimed")
	if detail[1][claimed] != "no" || detail[2][claimed] != "yes" {
		t.Fatalf("expected n1 unclaimed and k1 claimed, got %q and %q", detail[1][claimed], detail[2][claimed])
	}

	idetail := readCSV(t, filepath.Join(dir, InternalDetailFile))
	if len(idetail) != 4 {
		t.Fatalf("expected matched and unmatched rows, got %d", len(idetail)-1)
	}
	iclaimed := column(t, idetail[0], "Claimed")
	if idetail[1][iclaimed] != "no" || idetail[2][iclaimed] != "yes" || idetail[3][iclaimed] != "" {
		t.Fatalf("unexpected claimed cells %q %q %q", idetail[1][iclaimed], idetail[2][iclaimed], idetail[3][iclaimed])
	}
	last := idetail[3]
	if last[column(t, idetail[0], "Status")] != "unmatched" || last[column(t, idetail[0], "Client Track")] != "" || last[column(t, idetail[0], "Streams 2")] != "NA" {
		t.Fatalf("unexpected unmatched row %v", last)
	}
}

func TestWriteBlankTracks(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteBlankTracks(dir, []catalog.ClientSongRecord{{Line: 7, Artist: "Two Steps From Hell", Revenue: 1}})
	if err != nil {
		t.Fatalf("WriteBlankTracks: %v", err)
	}
	recs := readCSV(t, path)
	if len(recs) != 2 || recs[1][0] != "7" || recs[1][6] != "1.00" {
		t.Fatalf("unexpected blank track report %v", recs)
	}
}

func TestRenderTables(t *testing.T) {
	out := RenderSummaryTable(sampleReports())
	for _, want := range []string{"Victory", "El Dorado", "15.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary table misses %q:\n%s", want, out)
		}
	}
	stats := RenderStatsTable([]storage.RunStats{{RunKey: "stmt.csv", NextSongIndex: 1, Songs: 1, UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}})
	if !strings.Contains(stats, "stmt.csv") || !strings.Contains(stats, "2026-01-02 03:04:05") {
		t.Fatalf("unexpected stats table:\n%s", stats)
	}
}
