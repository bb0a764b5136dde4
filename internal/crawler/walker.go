package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/rpdarchive/internal/fetch"
	"github.com/nao1215/rpdarchive/internal/parser"
)

// PageFetcher is the network dependency of the crawler.
type PageFetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// DefaultMaxListingPages is the default ceiling of one pagination walk.
const DefaultMaxListingPages = 500

// Walker visits a listing page and its older pages.
type Walker struct {
	fetcher  PageFetcher
	parser   *parser.ListingParser
	maxPages int
	logger   *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithMaxPages sets the page ceiling of one walk.
func WithMaxPages(n int) WalkerOption {
	return func(w *Walker) {
		if n > 0 {
			w.maxPages = n
		}
	}
}

// WithListingParser sets the parser used for every page.
func WithListingParser(p *parser.ListingParser) WalkerOption {
	return func(w *Walker) {
		w.parser = p
	}
}

// WithWalkerLogger sets the logger.
func WithWalkerLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker using fetcher.
func NewWalker(fetcher PageFetcher, opts ...WalkerOption) *Walker {
	w := &Walker{
		fetcher:  fetcher,
		maxPages: DefaultMaxListingPages,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.parser == nil {
		w.parser = parser.NewListingParser(parser.WithLogger(w.logger))
	}
	return w
}

// PageVisitor receives the pairs of each listing page, numbered from 1.
type PageVisitor func(page int, pageURL string, pairs []parser.Pair)

// Walk fetches startURL and follows its "older posts" links until a page
// has none or the ceiling is reached. It returns the number of pages
// visited. A fetch failure ends the walk and is returned; pages already
// visited have been handed to visit.
func (w *Walker) Walk(ctx context.Context, startURL string, visit PageVisitor) (int, error) {
	next := startURL
	pages := 0

	for next != "" {
		if pages >= w.maxPages {
			w.logger.Warn("listing page ceiling reached", "start", startURL, "pages", pages)
			break
		}
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		resp, err := w.fetcher.Get(ctx, next)
		if err != nil {
			return pages, fmt.Errorf("fetch listing page %s: %w", next, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
		if err != nil {
			return pages, fmt.Errorf("parse listing page %s: %w", next, err)
		}

		pages++
		visit(pages, next, w.parser.ParseDocument(doc))

		href := parser.NextPage(doc)
		if href == "" {
			break
		}
		current, err := url.Parse(next)
		if err != nil {
			return pages, err
		}
		next = resolveURL(current, href)
	}

	return pages, nil
}
