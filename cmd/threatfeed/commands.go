package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"threatfeed/internal/brain"
	"threatfeed/internal/config"
	"threatfeed/internal/feeds"
	"threatfeed/internal/feeds/hackernews"
	"threatfeed/internal/feeds/rss"
	"threatfeed/internal/feeds/securityweek"
	"threatfeed/internal/logging"
	"threatfeed/internal/pipeline"
	"threatfeed/internal/store"
)

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, enrich and store the latest security news",
	Long: `Run one full collection cycle: fetch every configured source,
normalize dates, categorize, enrich with AI analysis, store new
articles, and sweep expired ones.

Examples:
  threatfeed run
  threatfeed run --date 2026-08-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var targetDate *time.Time
		if dateStr, _ := cmd.Flags().GetString("date"); dateStr != "" {
			d, err := time.Parse(store.DateLayout, dateStr)
			if err != nil {
				return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", dateStr)
			}
			targetDate = &d
		}

		ctx, stop := signalContext()
		defer stop()

		st, err := store.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		sources, parsers, err := buildSources(cfg)
		if err != nil {
			return err
		}

		if cfg.Gemini.APIKey == "" {
			logging.Warn("No Gemini API key configured, analyses will be unavailable")
		}
		provider := brain.NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.Model)
		analyzer := brain.NewAnalyzer(provider, cfg.Enrichment.MaxTokens)

		var reconcile []string
		for _, sc := range cfg.Sources {
			if sc.ReconcileDates {
				reconcile = append(reconcile, sourceName(sc))
			}
		}

		p := pipeline.New(pipeline.Options{
			Sources:          sources,
			Parsers:          parsers,
			Analyzer:         analyzer,
			Store:            st,
			RetentionDays:    cfg.RetentionDays,
			ReconcileSources: reconcile,
			FetchTimeout:     time.Duration(cfg.FetchTimeout) * time.Second,
			Workers:          cfg.Enrichment.Workers,
		})

		summary, err := p.Run(ctx, targetDate)
		if err != nil {
			return err
		}

		fmt.Printf("Run %s: fetched %d, stored %d new, skipped %d duplicates, swept %d expired\n",
			summary.RunID, summary.Fetched, summary.Persisted, summary.Deduped, summary.Swept)
		for src, msg := range summary.SourceErrors {
			fmt.Printf("  source %s failed: %s\n", src, msg)
		}
		return nil
	},
}

// --- sweep ---

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete articles older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		deleted, err := st.Sweep(cfg.RetentionDays)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d articles older than %d days\n", deleted, cfg.RetentionDays)
		return nil
	},
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored article counts by source, category and risk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		total, err := st.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Total articles: %d\n", total)

		for _, col := range []string{"source", "category", "risk_level"} {
			counts, err := st.CountBy(col)
			if err != nil {
				return err
			}
			printCounts(col, counts)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("date", "", "only process items published on this date (YYYY-MM-DD)")
}

// buildSources turns the configured source list into adapters and a date
// parser registry covering every one of them. RSS adapters emit ISO
// timestamps, so configured feeds get the absolute parser under their
// configured name.
func buildSources(cfg *config.Config) ([]feeds.Source, *feeds.ParserRegistry, error) {
	timeout := time.Duration(cfg.FetchTimeout) * time.Second
	registry := feeds.DefaultRegistry()
	var sources []feeds.Source
	for _, sc := range cfg.Sources {
		switch sc.Type {
		case config.TypeSecurityWeek:
			sources = append(sources, securityweek.New(timeout))
		case config.TypeHackerNews:
			sources = append(sources, hackernews.New(timeout))
		case config.TypeRSS:
			if sc.URL == "" {
				return nil, nil, fmt.Errorf("rss source %q has no url", sc.Name)
			}
			sources = append(sources, rss.New(sc.Name, sc.URL))
			registry.Register(sc.Name, feeds.AbsoluteParser{})
		default:
			return nil, nil, fmt.Errorf("unknown source type %q for source %q", sc.Type, sc.Name)
		}
	}
	return sources, registry, nil
}

// sourceName resolves the name the adapter reports for a configured
// source, which is what the stored records carry.
func sourceName(sc config.SourceConfig) string {
	switch sc.Type {
	case config.TypeSecurityWeek:
		return feeds.SourceSecurityWeek
	case config.TypeHackerNews:
		return feeds.SourceHackerNews
	default:
		return sc.Name
	}
}

func printCounts(label string, counts map[string]int) {
	fmt.Printf("\nBy %s:\n", label)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%d\n", k, counts[k])
	}
	w.Flush()
}
