package storage

import "time"

// Checkpoint is the resume point of one run. NextSongIndex is the first
// statement song that has not been committed yet.
type Checkpoint struct {
	RunKey         string
	RunID          string
	SchemaVersion  int
	NextSongIndex  int
	LastPlatform   string
	CompletedSongs int
	UpdatedAt      time.Time
}

// RunStats summarizes the stored results of one run.
type RunStats struct {
	RunKey        string
	NextSongIndex int
	Songs         int
	Matched       int
	Unmatched     int
	Dropped       int
	UpdatedAt     time.Time
}
