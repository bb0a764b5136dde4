package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultHeadingHops is how many preceding elements NearestPrecedingHeading
// inspects before giving up.
const DefaultHeadingHops = 20

// assetNamePattern matches "ASSET NAME: FOO" and "ASSETNAME:FOO".
var assetNamePattern = regexp.MustCompile(`(?i)ASSET\s*NAME:\s*([A-Za-z0-9]+)`)

// NameStrategy resolves the asset name belonging to a detail link.
// It reports false when it has no answer so the next strategy can try.
type NameStrategy func(link *goquery.Selection) (string, bool)

// firstSuccess returns the first name produced by strategies, in order.
func firstSuccess(link *goquery.Selection, strategies ...NameStrategy) (string, bool) {
	for _, s := range strategies {
		if name, ok := s(link); ok {
			return name, true
		}
	}
	return "", false
}

// DefaultStrategies returns the fallback chain used for links outside a
// structured post block.
func DefaultStrategies() []NameStrategy {
	return []NameStrategy{
		SiblingHeading,
		NearestPrecedingHeading(DefaultHeadingHops),
		LinkTextPattern,
	}
}

// SiblingHeading takes the name from an h1..h4 element directly before
// the link.
func SiblingHeading(link *goquery.Selection) (string, bool) {
	prev := link.Prev()
	if prev.Length() == 0 || !isHeading(prev.Get(0)) {
		return "", false
	}
	return nonEmpty(prev.Text())
}

// NearestPrecedingHeading walks backwards in document order from the link
// and takes the text of the first h1..h4 found within maxHops elements.
// An empty heading ends the search without a name.
func NearestPrecedingHeading(maxHops int) NameStrategy {
	return func(link *goquery.Selection) (string, bool) {
		if link.Length() == 0 {
			return "", false
		}
		n := link.Get(0)
		for hops := 0; hops < maxHops; {
			n = previousNode(n)
			if n == nil {
				return "", false
			}
			if n.Type != html.ElementNode {
				continue
			}
			hops++
			if isHeading(n) {
				return nonEmpty(nodeText(n))
			}
		}
		return "", false
	}
}

// LinkTextPattern extracts the token after "ASSET NAME:" in the link text
// and upper-cases it.
func LinkTextPattern(link *goquery.Selection) (string, bool) {
	return matchAssetName(link.Text())
}

// headingOf returns a strategy reading the h2.entry-title of a post block.
// The link argument is ignored.
func headingOf(block *goquery.Selection) NameStrategy {
	return func(_ *goquery.Selection) (string, bool) {
		return nonEmpty(block.Find("h2.entry-title").First().Text())
	}
}

func matchAssetName(text string) (string, bool) {
	m := assetNamePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	// A Caser is stateful, so one is created per call.
	return cases.Upper(language.Und).String(m[1]), true
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
