package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/rpdarchive/internal/parser"
)

// Discoverer runs the discovery phases over a Session.
type Discoverer struct {
	base     *url.URL
	walker   *Walker
	resolver *CategoryResolver
	logger   *slog.Logger
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*discovererConfig)

type discovererConfig struct {
	logger   *slog.Logger
	maxPages int
}

// WithDiscoveryLogger sets the logger of the discoverer and its walker.
func WithDiscoveryLogger(logger *slog.Logger) DiscovererOption {
	return func(c *discovererConfig) {
		c.logger = logger
	}
}

// WithListingPageCeiling sets the page ceiling of each listing walk.
func WithListingPageCeiling(n int) DiscovererOption {
	return func(c *discovererConfig) {
		c.maxPages = n
	}
}

// NewDiscoverer creates a Discoverer for the site rooted at base.
func NewDiscoverer(fetcher PageFetcher, base *url.URL, opts ...DiscovererOption) *Discoverer {
	cfg := &discovererConfig{logger: slog.Default(), maxPages: DefaultMaxListingPages}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Discoverer{
		base:     base,
		walker:   NewWalker(fetcher, WithMaxPages(cfg.maxPages), WithWalkerLogger(cfg.logger)),
		resolver: NewCategoryResolver(fetcher, base, cfg.logger),
		logger:   cfg.logger,
	}
}

// Discover runs the homepage walk, category resolution and every series
// walk. A homepage failure stops discovery at once. Series listing
// failures are collected and returned together after all walks ran;
// cancellation is returned immediately.
func (d *Discoverer) Discover(ctx context.Context, s *Session) error {
	if err := d.WalkHomepage(ctx, s); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	catToSeries, err := d.ResolveCategories(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	if err := d.WalkSeries(ctx, s, catToSeries); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// WalkHomepage walks the homepage listing. Series stays unknown for the
// names found there.
func (d *Discoverer) WalkHomepage(ctx context.Context, s *Session) error {
	return d.walkListing(ctx, s, HomeURL(d.base), "homepage", 0)
}

// ResolveCategories maps category ids to series numbers.
func (d *Discoverer) ResolveCategories(ctx context.Context) (map[int]int, error) {
	catToSeries, err := d.resolver.Resolve(ctx)
	if err != nil {
		return catToSeries, err
	}
	d.logger.Info("categories resolved", "series_categories", len(catToSeries))
	return catToSeries, nil
}

// WalkSeries walks the listing of every resolved category in ascending
// series order. A failing listing does not stop the others.
func (d *Discoverer) WalkSeries(ctx context.Context, s *Session, catToSeries map[int]int) error {
	var errs []error
	for _, ref := range bySeries(catToSeries) {
		if err := ctx.Err(); err != nil {
			return err
		}
		label := fmt.Sprintf("series %d (cat %d)", ref.series, ref.cat)
		if err := d.walkListing(ctx, s, CategoryURL(d.base, ref.cat), label, ref.series); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Discoverer) walkListing(ctx context.Context, s *Session, startURL, label string, series int) error {
	d.logger.Info("walking listing", "listing", label, "url", startURL)

	added := 0
	pages, err := d.walker.Walk(ctx, startURL, func(page int, pageURL string, pairs []parser.Pair) {
		n := s.Merge(pairs, series)
		added += n
		d.logger.Info("listing page",
			"listing", label,
			"page", page,
			"pairs", len(pairs),
			"new", n,
			"unique", s.UniqueCount())
	})
	if err != nil {
		d.logger.Error("listing walk aborted", "listing", label, "pages", pages, "error", err)
		return fmt.Errorf("%s: %w", label, err)
	}

	d.logger.Info("listing done", "listing", label, "pages", pages, "new", added, "unique", s.UniqueCount())
	return nil
}
