package catalog

import "strconv"

// GenericVersion is the version label used when none is declared or extracted.
const GenericVersion = "generic"

// ClientSongRecord is one declared song claim from the client statement.
type ClientSongRecord struct {
	Track         string
	Version       string
	Artist        string // possibly multi-valued, see SplitNames
	Album         string
	ClaimPlatform string
	Revenue       float64
	Streams       int64
	SongID        string
	VersionID     string
	Line          int // 1-based line in the statement, header excluded
}

// Key returns the normalized (track, version) grouping key of the record.
func (c ClientSongRecord) Key() SongKey {
	return SongKey{Track: Clean(c.Track), Version: CleanVersion(c.Version)}
}

// SongKey identifies a declared (song, version) pair.
type SongKey struct {
	Track   string
	Version string
}

// Metric is a platform counter that may be unavailable ("NA" or blank).
type Metric struct {
	Value int64
	Valid bool
}

// Known returns an available metric.
func Known(v int64) Metric { return Metric{Value: v, Valid: true} }

func (m Metric) String() string {
	if !m.Valid {
		return "NA"
	}
	return strconv.FormatInt(m.Value, 10)
}

// PlatformSongRow is one raw record returned by a platform song search,
// already remapped to the standard column set.
type PlatformSongRow struct {
	Platform    string
	SongID      string
	Track       string
	Artist      string
	Album       string
	Comments    Metric
	Likes       Metric
	Streams1    Metric
	Streams2    Metric
	ReleaseDate string
	Company     string
}

// ID is the platform-qualified identity of the row.
func (r PlatformSongRow) ID() RowID {
	return RowID{Platform: r.Platform, SongID: r.SongID}
}

// Streams returns the first available stream counter.
func (r PlatformSongRow) Streams() Metric {
	if r.Streams1.Valid {
		return r.Streams1
	}
	return r.Streams2
}

// RowID identifies a platform row across the refine and match stages.
type RowID struct {
	Platform string
	SongID   string
}

func (id RowID) String() string { return id.Platform + ":" + id.SongID }

// NormalizedRow is a platform row plus the fields derived by the normalizer.
type NormalizedRow struct {
	PlatformSongRow

	CleanTrack          string
	CleanArtist         string // sorted, de-duplicated, comma-joined
	CleanAlbum          string
	CleanVersion        string
	AdditionalArtists   string // sorted, de-duplicated, comma-joined
	VersionInstrumental string
	VersionGeneral      string
	VersionEP           string
	VersionMisc         string
}

// Candidate is a normalized row pulled into a refinement pool.
type Candidate struct {
	NormalizedRow
	RefineComment string
	RefineTier    int
}

// MatchResult is the outcome of matching one candidate. Client is nil for
// unmatched rows.
type MatchResult struct {
	Candidate
	Client   *ClientSongRecord
	Tier     int
	Reason   string
	JointKey string
}

// Matched reports whether the result is a confident match.
func (m MatchResult) Matched() bool { return m.Client != nil }

// Bucket accumulates match statistics for one side (claimed or unclaimed).
type Bucket struct {
	Count     int
	Comments  int64
	Favorites int64
	Streams   int64
	// Missing counts metric values excluded from the sums because they were
	// not available on the platform.
	Missing int
}

// PlatformSummary is the claimed/unclaimed breakdown for one platform.
type PlatformSummary struct {
	Platform  string
	Claimed   Bucket
	Unclaimed Bucket
}

// ClaimFigure is the client's own revenue and streams for one claim platform.
type ClaimFigure struct {
	Platform string
	Revenue  float64
	Streams  int64
}

// SongSummary aggregates matches for one declared (song, version).
type SongSummary struct {
	Track     string
	Version   string
	SongID    string
	VersionID string

	MatchesDetected int
	Platforms       []PlatformSummary
	Claims          []ClaimFigure

	TotalRevenue   float64
	TotalStreams   int64
	TotalComments  int64
	TotalFavorites int64
}

// SongReport is the persisted artifact of one processed statement song.
type SongReport struct {
	Index     int
	Song      string
	Summaries []SongSummary
	Matched   []MatchResult
	Unmatched []MatchResult
	// Dropped lists refined rows whose track name matches no client row.
	// They appear in neither Matched nor Unmatched.
	Dropped []RowID
}
