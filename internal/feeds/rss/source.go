// Package rss provides a generic RSS/Atom source adapter so new feeds can
// be added through configuration alone.
package rss

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"threatfeed/internal/feeds"
)

// Source fetches items from an RSS/Atom feed.
type Source struct {
	name   string
	url    string
	parser *gofeed.Parser
}

// New creates a new RSS source.
func New(name, url string) *Source {
	return &Source{
		name:   name,
		url:    url,
		parser: gofeed.NewParser(),
	}
}

func (s *Source) Name() string {
	return s.name
}

// Fetch retrieves the feed and converts entries to raw items. The entry's
// published timestamp is rendered in ISO-8601 so the absolute date parser
// can normalize it; entries without one carry an empty raw date and fall
// back to the current date downstream.
func (s *Source) Fetch(ctx context.Context) ([]feeds.RawItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}

	items := make([]feeds.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Title == "" || entry.Link == "" {
			continue
		}

		rawDate := ""
		if entry.PublishedParsed != nil {
			rawDate = entry.PublishedParsed.UTC().Format("2006-01-02T15:04:05Z")
		} else if entry.UpdatedParsed != nil {
			rawDate = entry.UpdatedParsed.UTC().Format("2006-01-02T15:04:05Z")
		}

		summary := entry.Description
		if summary == "" && entry.Content != "" {
			summary = truncate(entry.Content, 500)
		}

		items = append(items, feeds.RawItem{
			Title:      entry.Title,
			Summary:    summary,
			URL:        entry.Link,
			RawDate:    rawDate,
			SourceName: s.name,
		})
	}

	return items, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
