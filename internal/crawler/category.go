package crawler

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/rpdarchive/internal/parser"
)

// DefaultProbeMax is the highest category id probed when the homepage
// links to no category at all.
const DefaultProbeMax = 60

// CategoryResolver maps category ids to series numbers.
type CategoryResolver struct {
	fetcher  PageFetcher
	base     *url.URL
	probeMax int
	logger   *slog.Logger
}

// NewCategoryResolver creates a resolver for the site rooted at base.
func NewCategoryResolver(fetcher PageFetcher, base *url.URL, logger *slog.Logger) *CategoryResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryResolver{
		fetcher:  fetcher,
		base:     base,
		probeMax: DefaultProbeMax,
		logger:   logger,
	}
}

// Resolve fetches the homepage, collects its category ids (or probes
// 1..60 when there are none) and reads each category page title. Ids whose
// page fails to load or whose title names no series are skipped. Only a
// homepage failure or cancellation is returned as an error.
func (r *CategoryResolver) Resolve(ctx context.Context) (map[int]int, error) {
	home := HomeURL(r.base)
	resp, err := r.fetcher.Get(ctx, home)
	if err != nil {
		return nil, fmt.Errorf("fetch homepage %s: %w", home, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse homepage: %w", err)
	}

	ids := parser.CategoryIDs(doc)
	if len(ids) == 0 {
		r.logger.Info("no category links on homepage, probing", "max", r.probeMax)
		for id := 1; id <= r.probeMax; id++ {
			ids = append(ids, id)
		}
	}

	result := make(map[int]int)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		catURL := CategoryURL(r.base, id)
		resp, err := r.fetcher.Get(ctx, catURL)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			r.logger.Debug("category page unavailable", "cat", id, "error", err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
		if err != nil {
			r.logger.Debug("category page unparsable", "cat", id, "error", err)
			continue
		}

		title := parser.PageTitle(doc)
		if n, ok := parser.SeriesFromTitle(title); ok {
			result[id] = n
			r.logger.Debug("category resolved", "cat", id, "series", n)
		}
	}

	return result, nil
}

// categoryRef is one category id and the series it lists.
type categoryRef struct {
	cat    int
	series int
}

// bySeries orders a category mapping by series, then category id.
func bySeries(catToSeries map[int]int) []categoryRef {
	refs := make([]categoryRef, 0, len(catToSeries))
	for cat, series := range catToSeries {
		refs = append(refs, categoryRef{cat: cat, series: series})
	}
	slices.SortFunc(refs, func(a, b categoryRef) int {
		if c := cmp.Compare(a.series, b.series); c != 0 {
			return c
		}
		return cmp.Compare(a.cat, b.cat)
	})
	return refs
}
