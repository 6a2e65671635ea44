package securityweek

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const listingPage = `<html><body>
<article class="article">
  <h2>Critical Flaw Patched in VPN Appliance</h2>
  <div class="article-summary">Vendor ships emergency fix for remote code execution.</div>
  <a href="/vpn-flaw-patched">Read more</a>
  <time datetime="2025-06-10T08:00:00Z">June 10</time>
</article>
<article class="article">
  <h2>Ransomware Group Claims New Victim</h2>
  <div class="article-summary">Manufacturer investigating claims of stolen data.</div>
  <a href="https://www.securityweek.com/ransomware-victim">Read more</a>
  <time datetime="2025-06-09T12:30:00Z">June 9</time>
</article>
<article class="article">
  <h2></h2>
  <a href="/broken">no title</a>
</article>
</body></html>`

func TestFetchExtractsArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	src := NewWithURL(srv.URL, 5*time.Second)
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// Third article has no title and must be skipped.
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Critical Flaw Patched in VPN Appliance" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.RawDate != "2025-06-10T08:00:00Z" {
		t.Errorf("unexpected raw date: %q", first.RawDate)
	}
	if first.SourceName != "Security Week" {
		t.Errorf("unexpected source name: %q", first.SourceName)
	}

	// Relative link resolved against the listing URL.
	if want := srv.URL + "/vpn-flaw-patched"; first.URL != want {
		t.Errorf("URL = %q, want %q", first.URL, want)
	}
	// Absolute link passed through.
	if want := "https://www.securityweek.com/ransomware-victim"; items[1].URL != want {
		t.Errorf("URL = %q, want %q", items[1].URL, want)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewWithURL(srv.URL, 5*time.Second)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestFetchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no articles here</p></body></html>"))
	}))
	defer srv.Close()

	src := NewWithURL(srv.URL, 5*time.Second)
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected 0 items, got %d", len(items))
	}
}
