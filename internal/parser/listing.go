package parser

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// detailIDPattern extracts the numeric detail id from a "?p=<id>" link.
var detailIDPattern = regexp.MustCompile(`[?&]p=(\d+)`)

// DetailID returns the detail identifier carried by href, if any.
func DetailID(href string) (string, bool) {
	m := detailIDPattern.FindStringSubmatch(href)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Pair is one (name, link) discovered on a listing page.
type Pair struct {
	// Name is the resolved asset name.
	Name string

	// Href is the link as found in the page, possibly relative.
	Href string

	// DetailID is the numeric id extracted from Href.
	DetailID string
}

// ListingParser extracts (name, link) pairs from listing pages.
type ListingParser struct {
	strategies []NameStrategy
	logger     *slog.Logger
}

// ListingOption configures a ListingParser.
type ListingOption func(*ListingParser)

// WithStrategies replaces the fallback name strategies.
func WithStrategies(strategies ...NameStrategy) ListingOption {
	return func(p *ListingParser) {
		p.strategies = strategies
	}
}

// WithLogger sets the logger used to report dropped links.
func WithLogger(logger *slog.Logger) ListingOption {
	return func(p *ListingParser) {
		p.logger = logger
	}
}

// NewListingParser creates a parser using DefaultStrategies.
func NewListingParser(opts ...ListingOption) *ListingParser {
	p := &ListingParser{
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads an HTML listing page and returns its pairs.
func (p *ListingParser) Parse(r io.Reader) ([]Pair, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return p.ParseDocument(doc), nil
}

// ParseDocument returns the pairs of an already parsed listing page, in
// page order, with no detail id repeated.
//
// Only div#main is inspected. Post blocks (article, section) are read
// first, taking the name from h2.entry-title. Links to detail pages that
// no block claimed are then resolved with the fallback strategies.
func (p *ListingParser) ParseDocument(doc *goquery.Document) []Pair {
	main := doc.Find("div#main").First()
	if main.Length() == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var pairs []Pair

	main.Find("article, section").Each(func(_ int, block *goquery.Selection) {
		link := block.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			_, ok := DetailID(getAttr(s.Get(0), "href"))
			return ok
		}).First()
		if link.Length() == 0 {
			return
		}

		href := getAttr(link.Get(0), "href")
		id, _ := DetailID(href)
		if seen[id] {
			return
		}

		name, ok := firstSuccess(link, headingOf(block), LinkTextPattern)
		if !ok {
			return
		}
		seen[id] = true
		pairs = append(pairs, Pair{Name: name, Href: href, DetailID: id})
	})

	main.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := getAttr(link.Get(0), "href")
		id, ok := DetailID(href)
		if !ok || seen[id] {
			return
		}

		name, ok := firstSuccess(link, p.strategies...)
		if !ok {
			p.logger.Debug("dropping link without resolvable name", "href", href, "p_id", id)
			return
		}
		seen[id] = true
		pairs = append(pairs, Pair{Name: name, Href: href, DetailID: id})
	})

	return pairs
}
