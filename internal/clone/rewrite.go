package clone

import (
	"regexp"
	"strings"
)

var (
	detailHrefDouble = regexp.MustCompile(`href="[^"]*\?p=(\d+)[^"]*"`)
	detailHrefSingle = regexp.MustCompile(`href='[^']*\?p=(\d+)[^']*'`)
	seriesHrefDouble = regexp.MustCompile(`href="/series-(\d+)/?"`)
	seriesHrefSingle = regexp.MustCompile(`href='/series-(\d+)/?'`)
)

// Rewriter turns absolute site links into clone-relative ones.
type Rewriter struct {
	base string
}

// NewRewriter creates a Rewriter for the site rooted at baseURL.
// A trailing slash on baseURL is ignored.
func NewRewriter(baseURL string) *Rewriter {
	return &Rewriter{base: strings.TrimRight(baseURL, "/")}
}

// Rewrite applies, in order:
//  1. href/src attributes starting with the base URL lose the base
//  2. any href carrying ?p=<id> becomes p/<id>.html
//  3. href="/series-<n>/" becomes series-<n>/index.html
//
// Everything else is left untouched.
func (r *Rewriter) Rewrite(page string) string {
	if r.base != "" {
		page = strings.NewReplacer(
			`href="`+r.base, `href="`,
			`href='`+r.base, `href='`,
			`src="`+r.base, `src="`,
			`src='`+r.base, `src='`,
		).Replace(page)
	}

	page = detailHrefDouble.ReplaceAllString(page, `href="p/${1}.html"`)
	page = detailHrefSingle.ReplaceAllString(page, `href='p/${1}.html'`)
	page = seriesHrefDouble.ReplaceAllString(page, `href="series-${1}/index.html"`)
	page = seriesHrefSingle.ReplaceAllString(page, `href='series-${1}/index.html'`)
	return page
}
