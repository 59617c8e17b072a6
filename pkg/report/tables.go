package report

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/storage"
)

// TableStyle is the style of every rendered table.
var TableStyle = table.StyleRounded

func newTable(header table.Row, rightFrom int) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(TableStyle)
	tw.AppendHeader(header)
	configs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		align := text.AlignLeft
		if i >= rightFrom {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// RenderSummaryTable renders one line per declared (song, version).
func RenderSummaryTable(reports []catalog.SongReport) string {
	tw := newTable(table.Row{"Track", "Version", "Matches", "Claimed", "Unclaimed", "Revenue", "Streams"}, 2)
	var matches, claimed, unclaimed int
	var revenue float64
	var streams int64
	for _, rep := range reports {
		for _, s := range rep.Summaries {
			var c, u int
			for _, p := range s.Platforms {
				c += p.Claimed.Count
				u += p.Unclaimed.Count
			}
			tw.AppendRow(table.Row{s.Track, s.Version, s.MatchesDetected, c, u, money(s.TotalRevenue), s.TotalStreams})
			matches += s.MatchesDetected
			claimed += c
			unclaimed += u
			revenue += s.TotalRevenue
			streams += s.TotalStreams
		}
	}
	tw.AppendFooter(table.Row{"Total", "", matches, claimed, unclaimed, money(revenue), streams})
	return tw.Render()
}

// RenderStatsTable renders the stored runs.
func RenderStatsTable(stats []storage.RunStats) string {
	tw := newTable(table.Row{"Run", "Next Song", "Songs", "Matched", "Unmatched", "Dropped", "Updated"}, 1)
	for _, s := range stats {
		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Format("2006-01-02 15:04:05")
		}
		tw.AppendRow(table.Row{s.RunKey, strconv.Itoa(s.NextSongIndex + 1), s.Songs, s.Matched, s.Unmatched, s.Dropped, updated})
	}
	return tw.Render()
}
