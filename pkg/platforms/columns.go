package platforms

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
)

// ErrNoSongID is returned for rows without a platform song id.
var ErrNoSongID = errors.New("row has no song id")

// Mapper remaps platform columns onto the standard schema.
type Mapper struct {
	Platform string
	// Columns maps platform column names to standard names. An empty
	// mapping means the rows already use the standard names.
	Columns     map[string]string
	Unavailable string
}

// NewMapper builds the mapper for a configured platform.
func NewMapper(p config.Platform, unavailable string) Mapper {
	return Mapper{Platform: p.Name, Columns: p.Columns, Unavailable: unavailable}
}

func (m Mapper) standardize(raw RawRow) map[string]string {
	out := make(map[string]string, len(raw))
	if len(m.Columns) == 0 {
		for k, v := range raw {
			out[strings.ToLower(k)] = v
		}
		return out
	}
	lower := make(map[string]string, len(m.Columns))
	for src, dst := range m.Columns {
		lower[strings.ToLower(src)] = dst
	}
	for k, v := range raw {
		if dst, ok := lower[strings.ToLower(k)]; ok {
			out[dst] = v
		}
	}
	// Columns already named after the standard schema pass through.
	for k, v := range raw {
		lk := strings.ToLower(k)
		if _, taken := out[lk]; !taken && strings.HasPrefix(lk, "p_") {
			out[lk] = v
		}
	}
	return out
}

// Map converts one raw row.
func (m Mapper) Map(raw RawRow) (catalog.PlatformSongRow, error) {
	s := m.standardize(raw)
	row := catalog.PlatformSongRow{
		Platform:    m.Platform,
		SongID:      strings.TrimSpace(s[config.ColSongID]),
		Track:       s[config.ColTrack],
		Artist:      m.text(s[config.ColArtist]),
		Album:       m.text(s[config.ColAlbum]),
		Comments:    m.metric(s[config.ColComments]),
		Likes:       m.metric(s[config.ColLikes]),
		Streams1:    m.metric(s[config.ColStreams1]),
		Streams2:    m.metric(s[config.ColStreams2]),
		ReleaseDate: m.text(s[config.ColReleaseDate]),
		Company:     m.text(s[config.ColCompany]),
	}
	if row.SongID == "" {
		return row, fmt.Errorf("%w: %s %q", ErrNoSongID, m.Platform, row.Track)
	}
	return row, nil
}

// MapAll converts a batch of rows. Rows that cannot be mapped are returned
// as errors alongside the mapped rows.
func (m Mapper) MapAll(raws []RawRow) ([]catalog.PlatformSongRow, []error) {
	rows := make([]catalog.PlatformSongRow, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		row, err := m.Map(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func (m Mapper) text(v string) string {
	v = strings.TrimSpace(v)
	if m.isUnavailable(v) {
		return ""
	}
	return v
}

func (m Mapper) isUnavailable(v string) bool {
	return v == "" || (m.Unavailable != "" && strings.EqualFold(v, m.Unavailable))
}

func (m Mapper) metric(v string) catalog.Metric {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if m.isUnavailable(v) {
		return catalog.Metric{}
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return catalog.Known(n)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return catalog.Known(int64(f))
	}
	return catalog.Metric{}
}
