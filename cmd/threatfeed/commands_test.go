package main

import (
	"testing"
	"time"

	"threatfeed/internal/config"
	"threatfeed/internal/feeds"
)

func TestBuildSources(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = append(cfg.Sources, config.SourceConfig{
		Name: "Vendor Advisories",
		Type: config.TypeRSS,
		URL:  "https://example.com/feed.xml",
	})

	sources, _, err := buildSources(cfg)
	if err != nil {
		t.Fatalf("buildSources: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("got %d sources, want 3", len(sources))
	}

	names := make(map[string]bool)
	for _, s := range sources {
		names[s.Name()] = true
	}
	for _, want := range []string{feeds.SourceSecurityWeek, feeds.SourceHackerNews, "Vendor Advisories"} {
		if !names[want] {
			t.Errorf("missing source %q in %v", want, names)
		}
	}
}

func TestBuildSourcesRegistersRSSDateParser(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = append(cfg.Sources, config.SourceConfig{
		Name: "Vendor Advisories",
		Type: config.TypeRSS,
		URL:  "https://example.com/feed.xml",
	})

	_, registry, err := buildSources(cfg)
	if err != nil {
		t.Fatalf("buildSources: %v", err)
	}

	// The feed's ISO timestamp must normalize to its published date, not
	// fall back to today.
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	date, fallback := registry.Normalize("Vendor Advisories", "2026-08-27T09:30:00Z", now)
	if fallback {
		t.Error("rss date fell back to today despite a valid ISO timestamp")
	}
	want := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if !date.Equal(want) {
		t.Errorf("date = %s, want %s", date.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestBuildSourcesRejectsRSSWithoutURL(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{Name: "broken", Type: config.TypeRSS}}

	if _, _, err := buildSources(cfg); err == nil {
		t.Fatal("expected an error for an rss source without a url")
	}
}

func TestBuildSourcesRejectsUnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{Name: "mystery", Type: "gopher"}}

	if _, _, err := buildSources(cfg); err == nil {
		t.Fatal("expected an error for an unknown source type")
	}
}

func TestSourceNameMapsBuiltinTypes(t *testing.T) {
	cases := []struct {
		sc   config.SourceConfig
		want string
	}{
		{config.SourceConfig{Name: "sw", Type: config.TypeSecurityWeek}, feeds.SourceSecurityWeek},
		{config.SourceConfig{Name: "hn", Type: config.TypeHackerNews}, feeds.SourceHackerNews},
		{config.SourceConfig{Name: "Vendor Advisories", Type: config.TypeRSS}, "Vendor Advisories"},
	}
	for _, c := range cases {
		if got := sourceName(c.sc); got != c.want {
			t.Errorf("sourceName(%q) = %q, want %q", c.sc.Type, got, c.want)
		}
	}
}
