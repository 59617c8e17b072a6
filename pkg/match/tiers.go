package match

// facts records which identity fields a platform row shares with one client
// row.
type facts struct {
	track   bool
	version bool
	artist  bool
	album   bool
}

// tier is one matching rule. Rules are evaluated in order and the first one
// that holds decides the tier.
type tier struct {
	level   int
	reason  string
	matched bool
	holds   func(f facts) bool
}

// Tier reasons.
const (
	ReasonExact     = "Exact Match: track, version, artist and album"
	ReasonNoAlbum   = "Track, version and artist match, album differs"
	ReasonArtist    = "Track and artist match"
	ReasonTrackOnly = "Track Match Only"
)

var tiers = []tier{
	{level: 1, reason: ReasonExact, matched: true, holds: func(f facts) bool {
		return f.track && f.version && f.artist && f.album
	}},
	{level: 2, reason: ReasonNoAlbum, matched: true, holds: func(f facts) bool {
		return f.track && f.version && f.artist && !f.album
	}},
	{level: 3, reason: ReasonArtist, matched: true, holds: func(f facts) bool {
		return f.track && f.artist
	}},
	{level: 4, reason: ReasonTrackOnly, matched: false, holds: func(f facts) bool {
		return f.track
	}},
}

func classify(f facts) (tier, bool) {
	for _, t := range tiers {
		if t.holds(f) {
			return t, true
		}
	}
	return tier{}, false
}
