// Package feeds defines the source adapter contract and the item shapes
// that flow through a pipeline run.
package feeds

import (
	"context"
	"time"
)

// Built-in source names. Adapters and the date parser registry key on
// these exact strings.
const (
	SourceSecurityWeek = "Security Week"
	SourceHackerNews   = "The Hacker News"
)

// RawItem is a single article as extracted by a source adapter.
// The date is still the source's own representation; normalization
// happens downstream.
type RawItem struct {
	Title      string
	Summary    string
	URL        string
	RawDate    string
	SourceName string
}

// Item is a RawItem annotated with a normalized calendar date and a
// category. It lives only within a single pipeline run.
type Item struct {
	RawItem
	Date     time.Time // calendar date, midnight UTC
	Category string
}

// Source is the interface all feed sources implement.
// Each source owns its HTTP client and timeout; a failing source must not
// affect any other source.
type Source interface {
	// Name returns the human-readable source name, e.g. "Security Week".
	Name() string

	// Fetch retrieves the latest raw items from this source.
	Fetch(ctx context.Context) ([]RawItem, error)
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date at midnight UTC.
func Today() time.Time {
	return Day(time.Now())
}
