package dev

import (
	"context"
	"strings"

	"github.com/cmaudit/claimscope/pkg/platforms"
)

// Source serves a fixed set of rows already named after the standard
// columns. It is used for demos (`claimscope run --dev`) and tests.
type Source struct {
	name string
	rows []platforms.RawRow
}

// New returns a source serving rows, or the built-in fixture for name when
// no rows are given.
func New(name string, rows ...platforms.RawRow) *Source {
	if len(rows) == 0 {
		rows = fixture[name]
	}
	return &Source{name: name, rows: rows}
}

func (s *Source) Name() string { return s.name }

// SearchSongs returns the rows whose p_track contains song, ignoring case.
func (s *Source) SearchSongs(ctx context.Context, song string) ([]platforms.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(song))
	var out []platforms.RawRow
	for _, r := range s.rows {
		if strings.Contains(strings.ToLower(r["p_track"]), needle) {
			cp := make(platforms.RawRow, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func row(id, track, artist, album, comments, likes, streams string) platforms.RawRow {
	return platforms.RawRow{
		"p_song_id":        id,
		"p_track":          track,
		"p_artist":         artist,
		"p_album":          album,
		"p_comments":       comments,
		"p_likes_count":    likes,
		"p_stream_count_1": streams,
		"p_stream_count_2": "NA",
	}
}

var fixture = map[string][]platforms.RawRow{
	"kugou": {
		row("k1", "Victory", "Two Steps From Hell", "Archangel", "120", "300", "50000"),
		row("k2", "Victory", "Unknown Producer", "Other", "3", "NA", "900"),
		row("k3", "Victory (Live)", "Two Steps From Hell", "Live in Prague", "8", "10", "NA"),
		row("k4", "El Dorado (feat. Thomas Bergersen) - Instrumental", "Two Steps From Hell", "Archangel", "40", "77", "12000"),
		row("k5", "El Dorado", "Two Steps From Hell", "Archangel", "95", "210", "33000"),
		row("k6", "Victory Road", "Someone Else", "Games", "1", "2", "3"),
	},
	"netease_max": {
		row("n1", "Victory", "{\"Two Steps From Hell\"}", "Archangel", "560", "NA", "NA"),
		row("n2", "victory", "Thomas Bergersen", "Illusions", "12", "NA", "NA"),
		row("n3", "El Dorado", "Thomas Bergersen", "Archangel", "44", "NA", "NA"),
	},
	"qqmusicv2": {
		row("q1", "Victory", "Two Steps From Hell", "Archangel", "75", "20", "4000"),
	},
}
