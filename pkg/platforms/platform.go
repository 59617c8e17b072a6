package platforms

import (
	"context"
	"errors"
)

// ErrQueryFailed is returned when a platform search still fails after all
// retry attempts.
var ErrQueryFailed = errors.New("platform query failed")

// RawRow is one search result keyed by the platform's own column names.
type RawRow map[string]string

// SongSource abstracts a platform song search, hiding whether rows come from
// a database mirror, a JSON API or a scraped page.
type SongSource interface {
	Name() string
	// SearchSongs returns every row whose track name contains song,
	// case-insensitively.
	SearchSongs(ctx context.Context, song string) ([]RawRow, error)
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
