// Package hackernews scrapes the thehackernews.com front page.
package hackernews

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"threatfeed/internal/feeds"
	"threatfeed/internal/logging"
)

const defaultURL = "https://thehackernews.com"

// Source fetches The Hacker News front page and extracts articles.
// Dates on this site are relative ("2 days ago"), so the raw date string
// is passed through untouched for the normalizer.
type Source struct {
	url    string
	client *http.Client
}

// New creates a Hacker News source with the given HTTP timeout.
func New(timeout time.Duration) *Source {
	return NewWithURL(defaultURL, timeout)
}

// NewWithURL creates a source against a custom page URL (used by tests).
func NewWithURL(pageURL string, timeout time.Duration) *Source {
	return &Source{
		url:    pageURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string {
	return feeds.SourceHackerNews
}

// Fetch retrieves the front page and extracts raw items. Posts missing a
// title or story link are skipped.
func (s *Source) Fetch(ctx context.Context) ([]feeds.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "threatfeed/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var items []feeds.RawItem
	doc.Find("div.body-post").Each(func(_ int, post *goquery.Selection) {
		title := strings.TrimSpace(post.Find("h2.home-title").First().Text())
		summary := strings.TrimSpace(post.Find("div.home-desc").First().Text())
		link, _ := post.Find("a.story-link").First().Attr("href")
		rawDate := strings.TrimSpace(post.Find("div.item-label").First().Text())

		if title == "" || link == "" {
			logging.Debug("Skipping post with missing fields", "source", s.Name())
			return
		}

		items = append(items, feeds.RawItem{
			Title:      title,
			Summary:    summary,
			URL:        link,
			RawDate:    rawDate,
			SourceName: s.Name(),
		})
	})

	return items, nil
}
