package config

import "time"

// Standard column names every platform query result is remapped onto.
const (
	ColSongID      = "p_song_id"
	ColTrack       = "p_track"
	ColArtist      = "p_artist"
	ColArtistID    = "p_artist_id"
	ColAlbum       = "p_album"
	ColAlbumID     = "p_album_id"
	ColComments    = "p_comments"
	ColLikes       = "p_likes_count"
	ColStreams1    = "p_stream_count_1"
	ColStreams2    = "p_stream_count_2"
	ColReleaseDate = "p_release_date"
	ColCompany     = "p_company"
)

// Source kinds.
const (
	KindSQLite = "sqlite"
	KindHTTP   = "http"
	KindHTML   = "html"
	KindDev    = "dev"
)

// Refine strategies.
const (
	RefineFixedPoint = "fixedpoint"
	RefineTiered     = "tiered"
)

const (
	defaultMaxIterations = 21
	defaultRetryAttempts = 3
	defaultRetrySleep    = 5 * time.Second
	defaultCacheTTL      = 30 * time.Minute
	defaultUnavailable   = "NA"
	defaultDBPath        = "claimscope.sqlite"
	defaultOutputDir     = "output"
)

// Metric columns pass through under their standard names on every platform.
var metricColumns = map[string]string{
	ColLikes:    ColLikes,
	ColStreams1: ColStreams1,
	ColStreams2: ColStreams2,
}

func withMetrics(m map[string]string) map[string]string {
	for k, v := range metricColumns {
		m[k] = v
	}
	return m
}

func builtinPlatforms() []Platform {
	return []Platform{
		{
			Name:    "netease_max",
			Kind:    KindSQLite,
			Table:   "netease_max_songs",
			Refine:  RefineFixedPoint,
			Columns: withMetrics(map[string]string{
				"song_id":                ColSongID,
				"song_name":              ColTrack,
				"album_id":               ColAlbumID,
				"album_name":             ColAlbum,
				"artist_ids":             ColArtistID,
				"deprecated_artist_name": ColArtist,
				"company":                ColCompany,
				"release_date":           ColReleaseDate,
				"comment_count":          ColComments,
			}),
		},
		{
			Name:    "kugou",
			Kind:    KindSQLite,
			Table:   "kugou_songs",
			Refine:  RefineFixedPoint,
			Columns: withMetrics(map[string]string{
				"audio_id":        ColSongID,
				"work_name":       ColTrack,
				"album_id":        ColAlbumID,
				"album_name":      ColAlbum,
				"singer_ids":      ColArtistID,
				"ori_author_name": ColArtist,
				"publish_company": ColCompany,
				"publish_date":    ColReleaseDate,
				"combine_count":   ColComments,
			}),
		},
		{
			// Disabled until its search performance is acceptable.
			Name:     "qqmusicv2",
			Kind:     KindSQLite,
			Disabled: true,
			Table:    "qqmusicv2_songs",
			Refine:   RefineFixedPoint,
			Columns: withMetrics(map[string]string{
				"song_mid":       ColSongID,
				"song_name":      ColTrack,
				"album_mid":      ColAlbumID,
				"album_name":     ColAlbum,
				"singer_mids":    ColArtistID,
				"singer_names":   ColArtist,
				"company":        ColCompany,
				"release_date":   ColReleaseDate,
				"comment_number": ColComments,
			}),
		},
	}
}

func builtinAliases() map[string]string {
	return map[string]string{
		"inst":                 "instrumental",
		"instrumental version": "instrumental",
		"伴奏":                   "instrumental",
		"original":             "generic",
		"original mix":         "generic",
		"original version":     "generic",
		"live version":         "live",
		"remastered":           "remaster",
	}
}

func defaultStatementColumns() StatementColumns {
	return StatementColumns{
		Track:     "Track",
		Version:   "Version",
		Artist:    "Artist",
		Album:     "Album Name",
		Platform:  "Platform",
		Revenue:   "Revenue",
		Streams:   "Streams",
		SongID:    "Unique Song ID",
		VersionID: "Unique Version ID",
	}
}
