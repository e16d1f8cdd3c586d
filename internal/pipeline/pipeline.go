// Package pipeline wires the collect, select and schedule stages together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/captaintwin/itnews-portal/internal/config"
	"github.com/captaintwin/itnews-portal/internal/dedup"
	"github.com/captaintwin/itnews-portal/internal/fetcher"
	"github.com/captaintwin/itnews-portal/internal/model"
	"github.com/captaintwin/itnews-portal/internal/schedule"
	"github.com/captaintwin/itnews-portal/internal/selector"
	"github.com/captaintwin/itnews-portal/internal/state"
	"github.com/captaintwin/itnews-portal/internal/storage"
)

// Title word-count bounds for a publishable headline.
const (
	minTitleWords = 3
	maxTitleWords = 15
)

// FeedFetcher retrieves candidate entries from one feed URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, limit int, maxAge time.Duration) ([]fetcher.RawItem, error)
}

// PageExtractor derives body text and preview images from article pages.
type PageExtractor interface {
	BodyText(ctx context.Context, url string) (string, error)
	MainImage(ctx context.Context, url string) (string, error)
	DownloadImage(ctx context.Context, imageURL, destDir, id string) (string, error)
}

// Pipeline runs the per-stage logic and persists each stage's snapshot.
type Pipeline struct {
	cfg   *config.Config
	store storage.Storage
	feeds FeedFetcher
	pages PageExtractor
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Pipeline.
func New(cfg *config.Config, store storage.Storage, feeds FeedFetcher, pages PageExtractor, log *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		store: store,
		feeds: feeds,
		pages: pages,
		log:   log,
		now:   time.Now,
	}
}

// SetNow overrides the clock (useful for testing).
func (p *Pipeline) SetNow(now func() time.Time) {
	p.now = now
}

// Collect fetches every configured feed, filters the entries, downloads
// preview images and writes the candidates snapshot. Feed and image failures
// are logged and skipped, never fatal.
func (p *Pipeline) Collect(ctx context.Context) ([]model.Item, error) {
	items := make([]model.Item, 0)

	for _, src := range p.cfg.Sources {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		raw, err := p.feeds.Fetch(ctx, src, p.cfg.FetchLimit, p.cfg.MaxAge())
		if err != nil {
			p.log.Error("fetch feed", "url", src, "error", err)
			continue
		}

		kept := 0
		for _, entry := range raw {
			if !p.publishable(entry) {
				continue
			}

			id := model.ItemID(entry.URL)
			published := entry.PublishedAt
			if published.IsZero() {
				published = p.now().UTC()
			}

			items = append(items, model.Item{
				ID:          id,
				Title:       entry.Title,
				URL:         entry.URL,
				Summary:     entry.Summary,
				Source:      entry.Source,
				PublishedAt: published,
				ImagePath:   p.fetchImage(ctx, entry.URL, id),
			})
			kept++
		}
		p.log.Info("collected feed", "url", src, "fetched", len(raw), "kept", kept)
	}

	if err := state.Save(p.cfg.CandidatesFile(), items); err != nil {
		return nil, fmt.Errorf("save candidates: %w", err)
	}
	p.log.Info("candidates saved", "count", len(items), "path", p.cfg.CandidatesFile())
	return items, nil
}

func (p *Pipeline) publishable(entry fetcher.RawItem) bool {
	if !p.trustedSource(entry.URL) {
		return false
	}
	title := strings.ToLower(entry.Title)
	for _, bad := range p.cfg.BadKeywords {
		if strings.Contains(title, bad) {
			return false
		}
	}
	words := len(strings.Fields(entry.Title))
	return words >= minTitleWords && words <= maxTitleWords
}

func (p *Pipeline) trustedSource(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range p.cfg.TrustedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (p *Pipeline) fetchImage(ctx context.Context, pageURL, id string) string {
	imgURL, err := p.pages.MainImage(ctx, pageURL)
	if err != nil {
		p.log.Warn("fetch main image", "url", pageURL, "error", err)
		return ""
	}
	if imgURL == "" {
		return ""
	}
	path, err := p.pages.DownloadImage(ctx, imgURL, p.cfg.ImagesDir(), id)
	if err != nil {
		p.log.Warn("download image", "url", imgURL, "error", err)
		return ""
	}
	return path
}

// Select deduplicates the collected candidates against prior runs, extracts
// article bodies, ranks per source and writes the selection snapshot.
// An empty result is not an error; the caller skips the later stages.
func (p *Pipeline) Select(ctx context.Context) (model.Selection, error) {
	candidates, err := state.Load[[]model.Item](p.cfg.CandidatesFile())
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("no candidates snapshot, run collect first: %w", err)
	default:
		p.log.Warn("candidates snapshot unreadable, treating as empty", "error", err)
	}

	if len(candidates) == 0 {
		p.log.Warn("no candidates to select from")
		return nil, p.saveSelection(nil)
	}

	cutoff := p.now().Add(-p.cfg.Retention())
	if pruned, err := p.store.PruneSeen(ctx, cutoff); err != nil {
		p.log.Warn("prune seen items", "error", err)
	} else if pruned > 0 {
		p.log.Info("expired seen items", "count", pruned)
	}

	seen, err := p.store.SeenIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seen ids: %w", err)
	}

	fresh, newIDs := dedup.Filter(seen, candidates)
	if err := p.store.MarkSeen(ctx, newIDs); err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	p.log.Info("deduplicated candidates", "total", len(candidates), "fresh", len(fresh))

	if len(fresh) == 0 {
		p.log.Warn("nothing new to select")
		return nil, p.saveSelection(nil)
	}

	for i := range fresh {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, err := p.pages.BodyText(ctx, fresh[i].URL)
		if err != nil {
			p.log.Warn("extract body", "url", fresh[i].URL, "error", err)
			continue
		}
		fresh[i].CharCount = utf8.RuneCountInString(body)
	}

	selection := selector.Select(fresh, p.cfg.TopPerSource)
	if len(selection) == 0 {
		p.log.Warn("selection is empty, nothing to publish")
	} else {
		p.log.Info("selection ready", "count", len(selection))
	}
	return selection, p.saveSelection(selection)
}

func (p *Pipeline) saveSelection(selection model.Selection) error {
	if selection == nil {
		selection = model.Selection{}
	}
	if err := state.Save(p.cfg.SelectionFile(), selection); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// BuildSchedule loads the selection and writes the publication schedule for
// the configured window. An empty selection yields no schedule and no file.
func (p *Pipeline) BuildSchedule() ([]model.ScheduleEntry, error) {
	selection, err := state.Load[model.Selection](p.cfg.SelectionFile())
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("no selection snapshot, run select first: %w", err)
	default:
		p.log.Warn("selection snapshot unreadable, treating as empty", "error", err)
	}

	if len(selection) == 0 {
		p.log.Warn("empty selection, skipping scheduling")
		return nil, nil
	}

	now := p.now().In(p.cfg.Location())
	entries := schedule.Build(selection, schedule.Window{
		StartHour:    p.cfg.WindowStartHour,
		EndHour:      p.cfg.WindowEndHour,
		Grace:        p.cfg.Grace(),
		PerSourceCap: p.cfg.PerSourceCap,
		DailyCap:     p.cfg.DailyCap,
	}, now)
	if len(entries) == 0 {
		p.log.Warn("schedule came out empty")
		return nil, nil
	}

	if err := state.Save(p.cfg.ScheduleFile(), entries); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	p.log.Info("schedule saved", "count", len(entries),
		"first", entries[0].ScheduledTime, "last", entries[len(entries)-1].ScheduledTime)
	return entries, nil
}
