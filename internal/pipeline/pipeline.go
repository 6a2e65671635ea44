// Package pipeline orchestrates a full ingestion run: parallel source
// fetches, date normalization, categorization, deduplication, AI
// enrichment, persistence, and retention sweeping.
//
// A run is a bounded batch job. Failures at the per-source or per-item
// level are aggregated into the run Summary; only storage initialization
// failures (which happen before a Pipeline exists) are fatal.
package pipeline

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"threatfeed/internal/brain"
	"threatfeed/internal/feeds"
	"threatfeed/internal/logging"
	"threatfeed/internal/store"
)

// maxConcurrentFetches limits parallel source fetches.
const maxConcurrentFetches = 5

// Summary aggregates the outcome of one pipeline run.
type Summary struct {
	RunID         string
	Fetched       int               // raw items produced by all sources
	Deduped       int               // items skipped as already stored
	Enriched      int               // items with a real (non-fallback) analysis
	Persisted     int               // records inserted
	Swept         int64             // records deleted by retention
	Reconciled    int64             // records re-dated by the heuristic pass
	DateFallbacks int               // raw dates that fell back to today
	SourceErrors  map[string]string // source name -> failure description
	ItemErrors    int               // per-item storage failures
}

// analyzer is the enrichment dependency. brain.Analyzer satisfies it;
// tests substitute fakes.
type analyzer interface {
	Analyze(ctx context.Context, title, summary string) string
}

// storage is the subset of store.Store the pipeline needs.
type storage interface {
	Exists(url string) (bool, error)
	Insert(rec store.Record) error
	Sweep(retentionDays int) (int64, error)
	ReconcileDates(source string) (int64, error)
}

// Pipeline wires sources, normalization, enrichment and storage into a
// single runnable batch job. All collaborators are passed in explicitly.
type Pipeline struct {
	sources          []feeds.Source
	parsers          *feeds.ParserRegistry
	analyzer         analyzer
	store            storage
	retentionDays    int
	reconcileSources []string
	fetchTimeout     time.Duration
	workers          int

	now func() time.Time // injectable clock for tests
}

// Options configures a Pipeline.
type Options struct {
	Sources          []feeds.Source
	Parsers          *feeds.ParserRegistry
	Analyzer         analyzer
	Store            storage
	RetentionDays    int
	ReconcileSources []string // sources getting the yesterday-to-today pass
	FetchTimeout     time.Duration
	Workers          int // concurrent enrichment calls
}

// New creates a Pipeline from explicit dependencies.
func New(opts Options) *Pipeline {
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 90
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Parsers == nil {
		opts.Parsers = feeds.DefaultRegistry()
	}
	return &Pipeline{
		sources:          opts.Sources,
		parsers:          opts.Parsers,
		analyzer:         opts.Analyzer,
		store:            opts.Store,
		retentionDays:    opts.RetentionDays,
		reconcileSources: opts.ReconcileSources,
		fetchTimeout:     opts.FetchTimeout,
		workers:          opts.Workers,
		now:              time.Now,
	}
}

// Run executes one full pipeline pass. When targetDate is non-nil, only
// items normalized to that calendar date are processed; if no item
// matches, the run falls back to the unfiltered set (policy owned here,
// not by the adapters). Repeated runs are idempotent with respect to
// duplicate URLs.
func (p *Pipeline) Run(ctx context.Context, targetDate *time.Time) (Summary, error) {
	summary := Summary{
		RunID:        uuid.New().String(),
		SourceErrors: make(map[string]string),
	}
	logging.Info("Pipeline run starting", "run_id", summary.RunID, "sources", len(p.sources))

	// Fetching
	raw := p.fetchAll(ctx, &summary)
	summary.Fetched = len(raw)
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	// Normalizing + categorizing
	items := p.normalize(raw, &summary)

	// Target-date filter with unfiltered fallback
	if targetDate != nil {
		want := feeds.Day(*targetDate)
		var matched []feeds.Item
		for _, item := range items {
			if item.Date.Equal(want) {
				matched = append(matched, item)
			}
		}
		if len(matched) > 0 {
			items = matched
		} else {
			logging.Info("No items match target date, using unfiltered set",
				"target", want.Format(store.DateLayout), "items", len(items))
		}
	}

	// Deduplicating: pre-filter against the store before spending
	// enrichment calls. Also collapses duplicates within the run itself.
	survivors := p.dedup(items, &summary)
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	// Enriching + persisting
	p.enrichAndPersist(ctx, survivors, &summary)

	// Heuristic date reconciliation for flagged sources
	for _, src := range p.reconcileSources {
		updated, err := p.store.ReconcileDates(src)
		if err != nil {
			logging.Error("Date reconciliation failed", "source", src, "error", err)
			continue
		}
		summary.Reconciled += updated
	}

	// Sweeping runs strictly after persistence for this run.
	swept, err := p.store.Sweep(p.retentionDays)
	if err != nil {
		logging.Error("Retention sweep failed", "error", err)
	}
	summary.Swept = swept

	logging.Info("Pipeline run complete",
		"run_id", summary.RunID,
		"fetched", summary.Fetched,
		"deduped", summary.Deduped,
		"enriched", summary.Enriched,
		"persisted", summary.Persisted,
		"swept", summary.Swept,
		"date_fallbacks", summary.DateFallbacks,
		"source_errors", len(summary.SourceErrors),
		"item_errors", summary.ItemErrors)

	return summary, nil
}

// fetchAll fetches every source in parallel. Each source gets its own
// timeout and at most one retry on a transient failure; a failing source
// contributes zero items and a summary entry, never an aborted run.
func (p *Pipeline) fetchAll(ctx context.Context, summary *Summary) []feeds.RawItem {
	var mu sync.Mutex
	var all []feeds.RawItem

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for _, src := range p.sources {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			items, err := p.fetchSource(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.Error("Source fetch failed", "source", src.Name(), "error", err)
				summary.SourceErrors[src.Name()] = err.Error()
				return nil
			}
			logging.Info("Source fetched", "source", src.Name(), "items", len(items))
			all = append(all, items...)
			return nil
		})
	}

	_ = g.Wait()
	return all
}

// fetchSource performs one fetch with a per-attempt timeout, retrying
// once on a transient network failure.
func (p *Pipeline) fetchSource(ctx context.Context, src feeds.Source) ([]feeds.RawItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	items, err := src.Fetch(fetchCtx)
	cancel()
	if err == nil || !isTransient(err) || ctx.Err() != nil {
		return items, err
	}

	logging.Warn("Transient fetch failure, retrying", "source", src.Name(), "error", err)
	fetchCtx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()
	return src.Fetch(fetchCtx)
}

// isTransient reports whether a fetch error is worth one retry.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Server-side 5xx from an adapter's status check.
	return strings.Contains(err.Error(), "HTTP error: 5")
}

// normalize annotates raw items with a calendar date and a category.
func (p *Pipeline) normalize(raw []feeds.RawItem, summary *Summary) []feeds.Item {
	now := p.now()
	items := make([]feeds.Item, 0, len(raw))
	for _, r := range raw {
		date, fallback := p.parsers.Normalize(r.SourceName, r.RawDate, now)
		if fallback {
			summary.DateFallbacks++
			logging.Debug("Date parse fallback", "source", r.SourceName, "raw", r.RawDate)
		}
		items = append(items, feeds.Item{
			RawItem:  r,
			Date:     date,
			Category: feeds.Categorize(r.Title, r.Summary),
		})
	}
	return items
}

// dedup drops items whose URL is already stored (or repeated within the
// run). The store's unique index remains the final authority at insert
// time; this pass only avoids wasting enrichment calls.
func (p *Pipeline) dedup(items []feeds.Item, summary *Summary) []feeds.Item {
	seen := make(map[string]bool, len(items))
	var out []feeds.Item
	for _, item := range items {
		if item.URL == "" || seen[item.URL] {
			summary.Deduped++
			continue
		}
		seen[item.URL] = true

		exists, err := p.store.Exists(item.URL)
		if err != nil {
			logging.Error("Dedup check failed", "url", item.URL, "error", err)
			summary.ItemErrors++
			continue
		}
		if exists {
			summary.Deduped++
			continue
		}
		out = append(out, item)
	}
	return out
}

// enrichAndPersist runs enrichment and insertion for the surviving items
// with bounded concurrency. Each item is independently committed; an
// aborted run keeps whatever was already persisted.
func (p *Pipeline) enrichAndPersist(ctx context.Context, items []feeds.Item, summary *Summary) {
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(p.workers)

	for _, item := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			analysis := p.analyzer.Analyze(ctx, item.Title, item.Summary)
			risk := brain.ExtractRiskLevel(analysis)

			rec := store.Record{
				Title:     item.Title,
				Summary:   item.Summary,
				Source:    item.SourceName,
				URL:       item.URL,
				Date:      item.Date,
				Category:  item.Category,
				Analysis:  analysis,
				RiskLevel: string(risk),
			}

			err := p.store.Insert(rec)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, store.ErrDuplicate):
				// Lost a race with a concurrent run; benign.
				summary.Deduped++
			case err != nil:
				logging.Error("Failed to persist record", "url", item.URL, "error", err)
				summary.ItemErrors++
			default:
				summary.Persisted++
				if analysis != brain.UnavailableMessage {
					summary.Enriched++
				}
				logging.Info("Stored article",
					"title", item.Title,
					"source", item.SourceName,
					"date", item.Date.Format(store.DateLayout),
					"risk", risk)
			}
			return nil
		})
	}

	_ = g.Wait()
}
