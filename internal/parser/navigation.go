package parser

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	categoryIDPattern  = regexp.MustCompile(`[?&]cat=(\d+)`)
	seriesTitlePattern = regexp.MustCompile(`(?i)Series\s+(\d+)`)
)

// NextPage returns the "older posts" link of a listing page: the first
// link inside div.nav-previous. It returns "" on the last page.
func NextPage(doc *goquery.Document) string {
	link := doc.Find("div.nav-previous a[href]").First()
	if link.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(getAttr(link.Get(0), "href"))
}

// CategoryIDs returns the distinct category ids linked from the page,
// ascending.
func CategoryIDs(doc *goquery.Document) []int {
	seen := make(map[int]bool)
	var ids []int
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		m := categoryIDPattern.FindStringSubmatch(getAttr(a.Get(0), "href"))
		if m == nil {
			return
		}
		id, err := strconv.Atoi(m[1])
		if err != nil || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	slices.Sort(ids)
	return ids
}

// PageTitle returns the trimmed text of the first <title> element.
func PageTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// SeriesFromTitle reads a series number from a category page title such
// as "Series 7 « Rare Pepe Directory". Numbers outside 1..36 are rejected.
func SeriesFromTitle(title string) (int, bool) {
	m := seriesTitlePattern.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 36 {
		return 0, false
	}
	return n, true
}
