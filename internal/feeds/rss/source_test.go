package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"threatfeed/internal/feeds"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Vendor Advisories</title>
  <link>https://example.com</link>
  <item>
    <title>Advisory for CVE-2026-0001</title>
    <link>https://example.com/advisory-1</link>
    <description>A critical flaw in the widget service.</description>
    <pubDate>Thu, 27 Aug 2026 09:30:00 GMT</pubDate>
  </item>
  <item>
    <title>Entry without a link</title>
    <description>No link on this one.</description>
  </item>
  <item>
    <title>Advisory without a date</title>
    <link>https://example.com/advisory-2</link>
    <description>Published timestamp missing upstream.</description>
  </item>
</channel>
</rss>`

func newTestSource(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New("Vendor Advisories", srv.URL)
}

func TestFetch(t *testing.T) {
	src := newTestSource(t, feedXML)

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (entry without a link is skipped)", len(items))
	}

	first := items[0]
	if first.Title != "Advisory for CVE-2026-0001" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://example.com/advisory-1" {
		t.Errorf("url = %q", first.URL)
	}
	if first.SourceName != "Vendor Advisories" {
		t.Errorf("source = %q", first.SourceName)
	}
	if first.RawDate != "2026-08-27T09:30:00Z" {
		t.Errorf("raw date = %q, want ISO form of the published timestamp", first.RawDate)
	}

	if items[1].RawDate != "" {
		t.Errorf("dateless entry raw date = %q, want empty", items[1].RawDate)
	}
}

func TestFetchRawDateNormalizes(t *testing.T) {
	src := newTestSource(t, feedXML)

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// The emitted raw date must round-trip through the absolute parser to
	// the published calendar date rather than falling back to today.
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	date, parsed := feeds.AbsoluteParser{}.Parse(items[0].RawDate, now)
	if !parsed {
		t.Fatalf("absolute parser did not understand %q", items[0].RawDate)
	}
	want := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if !date.Equal(want) {
		t.Errorf("normalized date = %s, want %s",
			date.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := New("Vendor Advisories", srv.URL)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
