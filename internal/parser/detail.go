package parser

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	amountIssuedPattern = regexp.MustCompile(`(?i)AMOUNT ISSUED:\s*(\d+)`)
	createdPattern      = regexp.MustCompile(`CREATED\s+([A-Za-z]+\s+\d{4})`)
)

// imageSkipWords exclude avatars and site branding from the card image search.
var imageSkipWords = []string{"gravatar", "avatar", "logo"}

// Detail holds the fields parsed from an asset detail page. Fields the
// page does not yield stay nil.
type Detail struct {
	// Title is the full <title> text.
	Title string

	// AssetName is the title segment before the first en-dash (or hyphen).
	// Empty when the title has neither.
	AssetName string

	AmountIssued *int64
	Created      *string
	BlockscanURL *string
	PrevP        *string
	NextP        *string

	// ImageURL is absolute, resolved against the site base URL.
	ImageURL *string
}

// ParseDetail reads an asset detail page.
func ParseDetail(r io.Reader, base *url.URL) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse detail: %w", err)
	}
	return ParseDetailDocument(doc, base), nil
}

// ParseDetailDocument extracts the asset fields from a parsed detail page.
func ParseDetailDocument(doc *goquery.Document, base *url.URL) *Detail {
	d := &Detail{Title: PageTitle(doc)}
	d.AssetName = nameFromTitle(d.Title)

	region := contentRegion(doc)
	text := region.Text()

	if m := amountIssuedPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			d.AmountIssued = &n
		}
	}
	if m := createdPattern.FindStringSubmatch(text); m != nil {
		created := m[1]
		d.Created = &created
	}

	region.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := getAttr(a.Get(0), "href")

		if d.BlockscanURL == nil && isBlockscanAssetLink(href) {
			u := href
			d.BlockscanURL = &u
		}

		id, ok := DetailID(href)
		if !ok {
			return
		}
		label := strings.ToUpper(a.Text())
		switch {
		case strings.Contains(label, "PREV"):
			d.PrevP = &id
		case strings.Contains(label, "NEXT"):
			d.NextP = &id
		}
	})

	region.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := getAttr(img.Get(0), "src")
		if src == "" || isDecorativeImage(src) {
			return true
		}
		resolved := resolve(base, src)
		d.ImageURL = &resolved
		return false
	})

	return d
}

// contentRegion is div#main, else the first article, else the whole page.
func contentRegion(doc *goquery.Document) *goquery.Selection {
	if main := doc.Find("div#main").First(); main.Length() > 0 {
		return main
	}
	if article := doc.Find("article").First(); article.Length() > 0 {
		return article
	}
	return doc.Selection
}

func nameFromTitle(title string) string {
	for _, sep := range []string{"–", "-"} {
		if i := strings.Index(title, sep); i >= 0 {
			return strings.TrimSpace(title[:i])
		}
	}
	return ""
}

func isBlockscanAssetLink(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Host), "blockscan.com") && strings.Contains(href, "assetInfo")
}

func isDecorativeImage(src string) bool {
	lower := strings.ToLower(src)
	for _, w := range imageSkipWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
