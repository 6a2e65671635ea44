// Package securityweek scrapes article listings from securityweek.com.
package securityweek

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"threatfeed/internal/feeds"
	"threatfeed/internal/logging"
)

const defaultURL = "https://www.securityweek.com"

// Source fetches the Security Week front page and extracts articles.
type Source struct {
	url    string
	client *http.Client
}

// New creates a Security Week source with the given HTTP timeout.
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
	return feeds.SourceSecurityWeek
}

// Fetch retrieves the listing page and extracts raw items. Articles
// missing a title or link are skipped; a page-level failure is returned
// to the caller.
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
	doc.Find("article.article").Each(func(_ int, article *goquery.Selection) {
		title := strings.TrimSpace(article.Find("h2").First().Text())
		summary := strings.TrimSpace(article.Find("div.article-summary").First().Text())
		link, _ := article.Find("a").First().Attr("href")
		rawDate, _ := article.Find("time").First().Attr("datetime")

		if title == "" || link == "" {
			logging.Debug("Skipping article with missing fields", "source", s.Name())
			return
		}

		items = append(items, feeds.RawItem{
			Title:      title,
			Summary:    summary,
			URL:        resolveURL(s.url, link),
			RawDate:    rawDate,
			SourceName: s.Name(),
		})
	})

	return items, nil
}

// resolveURL makes a possibly-relative article link absolute against the
// listing page URL.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
