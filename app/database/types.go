package database

import (
	"time"
)

// Source is the poll status of a configured CAP source. Alerts themselves
// are never stored.
type Source struct {
	Name          string // Configuration source identifier derived from filename
	URL           string // Feed URL from configuration
	Title         string // Channel title from the last successful fetch
	Link          string
	Language      string
	AlertCount    int    // Alerts kept after filtering on the last successful fetch
	LastError     string // Empty after a successful fetch
	LastFetchedAt *time.Time
	LastSuccessAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FetchResult is recorded after a successful poll.
type FetchResult struct {
	Title       string
	Link        string
	Language    string
	AlertCount  int
	FetchedAt   time.Time
	NextFetchAt time.Time
}
