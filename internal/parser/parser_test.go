package parser

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/rpdarchive/internal/log"
)

func mustDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("failed to parse html: %v", err)
	}
	return doc
}

func names(pairs []Pair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Name+"="+p.DetailID)
	}
	return out
}

func TestDetailID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href   string
		want   string
		wantOK bool
	}{
		{"http://rarepepedirectory.com/?p=482", "482", true},
		{"/?p=12#comments", "12", true},
		{"?cat=5&p=77", "77", true},
		{"http://rarepepedirectory.com/?cat=5", "", false},
		{"http://rarepepedirectory.com/?step=3", "", false},
		{"/series-1/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			t.Parallel()
			got, ok := DetailID(tt.href)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestListingParser(t *testing.T) {
	t.Parallel()

	t.Run("structured blocks use the entry title", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><div id="main">
<article><h2 class="entry-title"><a href="http://x/?p=10">PEPECASH</a></h2>
<p><a href="http://x/?p=10">Continue reading</a></p></article>
<article><a href="http://x/?p=11">ASSET NAME: rarepepe</a></article>
</div></body></html>`

		pairs := NewListingParser(WithLogger(log.Discard())).ParseDocument(mustDoc(t, page))
		want := []string{"PEPECASH=10", "RAREPEPE=11"}
		if diff := cmp.Diff(want, names(pairs)); diff != "" {
			t.Errorf("pairs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fallback resolves sibling and preceding headings", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><div id="main">` +
			`<h3>SIBPEPE</h3><a href="/?p=12">view</a>` +
			`<h4>DEEPPEPE</h4><div><p>text<a href="/?p=13">view</a></p></div>` +
			`</div></body></html>`

		pairs := NewListingParser(WithLogger(log.Discard())).ParseDocument(mustDoc(t, page))
		want := []string{"SIBPEPE=12", "DEEPPEPE=13"}
		if diff := cmp.Diff(want, names(pairs)); diff != "" {
			t.Errorf("pairs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("link text pattern is the last resort", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><div id="main"><p><a href="/?p=14">ASSETNAME:pepeballet</a></p></div></body></html>`

		pairs := NewListingParser(WithLogger(log.Discard())).ParseDocument(mustDoc(t, page))
		want := []string{"PEPEBALLET=14"}
		if diff := cmp.Diff(want, names(pairs)); diff != "" {
			t.Errorf("pairs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unresolvable link is dropped", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><div id="main"><p><a href="/?p=15">view</a></p></div></body></html>`

		pairs := NewListingParser(WithLogger(log.Discard())).ParseDocument(mustDoc(t, page))
		if len(pairs) != 0 {
			t.Errorf("expected no pairs, got %v", names(pairs))
		}
	})

	t.Run("duplicate detail ids are reported once", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><div id="main">` +
			`<h3>FIRST</h3><a href="/?p=20">x</a>` +
			`<h3>SECOND</h3><a href="/?p=20">y</a>` +
			`</div></body></html>`

		pairs := NewListingParser(WithLogger(log.Discard())).ParseDocument(mustDoc(t, page))
		want := []string{"FIRST=20"}
		if diff := cmp.Diff(want, names(pairs)); diff != "" {
			t.Errorf("pairs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("page without main region yields nothing", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><h3>X</h3><a href="/?p=1">x</a></body></html>`

		pairs := NewListingParser(WithLogger(log.Discard())).ParseDocument(mustDoc(t, page))
		if len(pairs) != 0 {
			t.Errorf("expected no pairs, got %v", names(pairs))
		}
	})

	t.Run("preceding heading search is bounded", func(t *testing.T) {
		t.Parallel()
		filler := func(n int) string {
			return strings.Repeat("<span>x</span>", n)
		}
		tests := []struct {
			name string
			page string
			want []string
		}{
			{
				name: "heading within reach",
				page: `<h3>NEARPEPE</h3>` + filler(DefaultHeadingHops-2) + `<a href="/?p=30">view</a>`,
				want: []string{"NEARPEPE=30"},
			},
			{
				name: "heading out of reach drops the link",
				page: `<h3>FARPEPE</h3>` + filler(DefaultHeadingHops+5) + `<a href="/?p=31">view</a>`,
				want: []string{},
			},
			{
				name: "heading out of reach falls through to the text pattern",
				page: `<h3>FARPEPE</h3>` + filler(DefaultHeadingHops+5) + `<a href="/?p=32">ASSET NAME: textpepe</a>`,
				want: []string{"TEXTPEPE=32"},
			},
			{
				name: "empty heading stops the search",
				page: `<h3>EARLIER</h3><p>x</p><h4> </h4><p>y</p><a href="/?p=33">ASSET NAME: textpepe</a>`,
				want: []string{"TEXTPEPE=33"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				page := `<html><body><div id="main">` + tt.page + `</div></body></html>`
				pairs := NewListingParser(WithLogger(log.Discard())).ParseDocument(mustDoc(t, page))
				if diff := cmp.Diff(tt.want, names(pairs)); diff != "" {
					t.Errorf("pairs mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})

	t.Run("custom strategies replace the fallback chain", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><div id="main"><h3>SIBPEPE</h3><a href="/?p=12">view</a></div></body></html>`

		p := NewListingParser(WithLogger(log.Discard()), WithStrategies(LinkTextPattern))
		if pairs := p.ParseDocument(mustDoc(t, page)); len(pairs) != 0 {
			t.Errorf("expected no pairs, got %v", names(pairs))
		}
	})
}

func TestListingParserCount(t *testing.T) {
	t.Parallel()

	for _, k := range []int{0, 1, 7, 25} {
		t.Run(fmt.Sprintf("%d entries", k), func(t *testing.T) {
			t.Parallel()

			var sb strings.Builder
			sb.WriteString(`<html><body><div id="main">`)
			for i := range k {
				fmt.Fprintf(&sb, `<article><h2 class="entry-title">ASSET%d</h2><a href="http://x/?p=%d">more</a></article>`, i, 100+i)
			}
			sb.WriteString(`</div></body></html>`)

			pairs, err := NewListingParser(WithLogger(log.Discard())).Parse(strings.NewReader(sb.String()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pairs) != k {
				t.Errorf("expected %d pairs, got %d", k, len(pairs))
			}
		})
	}
}

func TestParseDetail(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("http://rarepepedirectory.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("extracts name amount and created", func(t *testing.T) {
		t.Parallel()
		page := `<html><head><title>FAKEPEPE – Rare Pepe Directory</title></head><body>
<div id="main">ASSET NAME: FAKEPEPE AMOUNT ISSUED: 300 CREATED June 2017</div></body></html>`

		d, err := ParseDetail(strings.NewReader(page), base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.AssetName != "FAKEPEPE" {
			t.Errorf("expected FAKEPEPE, got %q", d.AssetName)
		}
		if d.AmountIssued == nil || *d.AmountIssued != 300 {
			t.Errorf("expected amount 300, got %v", d.AmountIssued)
		}
		if d.Created == nil || *d.Created != "June 2017" {
			t.Errorf("expected created June 2017, got %v", d.Created)
		}
		if d.BlockscanURL != nil || d.PrevP != nil || d.NextP != nil || d.ImageURL != nil {
			t.Error("expected absent fields to stay nil")
		}
	})

	t.Run("extracts links and image", func(t *testing.T) {
		t.Parallel()
		page := `<html><head><title>PEPECASH - Rare Pepe Directory</title></head><body>
<div id="main">
<img src="/wp-content/themes/logo.png">
<img src="http://gravatar.com/avatar/1.jpg">
<img src="/wp-content/uploads/2016/09/PEPECASH.jpg">
<a href="https://xcp.blockscan.com/assetInfo/PEPECASH">Blockscan</a>
<a href="http://rarepepedirectory.com/?p=100">&laquo; Prev</a>
<a href="http://rarepepedirectory.com/?p=102">next &raquo;</a>
</div></body></html>`

		d, err := ParseDetail(strings.NewReader(page), base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.AssetName != "PEPECASH" {
			t.Errorf("expected PEPECASH from hyphen title, got %q", d.AssetName)
		}
		if d.BlockscanURL == nil || *d.BlockscanURL != "https://xcp.blockscan.com/assetInfo/PEPECASH" {
			t.Errorf("unexpected blockscan url %v", d.BlockscanURL)
		}
		if d.PrevP == nil || *d.PrevP != "100" {
			t.Errorf("expected prev 100, got %v", d.PrevP)
		}
		if d.NextP == nil || *d.NextP != "102" {
			t.Errorf("expected next 102, got %v", d.NextP)
		}
		want := "http://rarepepedirectory.com/wp-content/uploads/2016/09/PEPECASH.jpg"
		if d.ImageURL == nil || *d.ImageURL != want {
			t.Errorf("expected image %s, got %v", want, d.ImageURL)
		}
	})

	t.Run("title without separator leaves name empty", func(t *testing.T) {
		t.Parallel()
		page := `<html><head><title>Rare Pepe Directory</title></head><body><article>nothing</article></body></html>`

		d, err := ParseDetail(strings.NewReader(page), base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.AssetName != "" {
			t.Errorf("expected empty name, got %q", d.AssetName)
		}
		if d.AmountIssued != nil {
			t.Errorf("expected nil amount, got %v", *d.AmountIssued)
		}
	})

	t.Run("text falls back to article", func(t *testing.T) {
		t.Parallel()
		page := `<html><head><title>X – Y</title></head><body><article>AMOUNT ISSUED: 42</article></body></html>`

		d, err := ParseDetail(strings.NewReader(page), base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.AmountIssued == nil || *d.AmountIssued != 42 {
			t.Errorf("expected 42, got %v", d.AmountIssued)
		}
	})
}

func TestNavigation(t *testing.T) {
	t.Parallel()

	t.Run("next page link", func(t *testing.T) {
		t.Parallel()
		doc := mustDoc(t, `<html><body><div class="nav-previous"><a href="http://x/page/2/">Older</a></div></body></html>`)
		if got := NextPage(doc); got != "http://x/page/2/" {
			t.Errorf("expected next page link, got %q", got)
		}
	})

	t.Run("last page has no next link", func(t *testing.T) {
		t.Parallel()
		doc := mustDoc(t, `<html><body><div class="nav-next"><a href="http://x/">Newer</a></div></body></html>`)
		if got := NextPage(doc); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})

	t.Run("category ids are distinct and sorted", func(t *testing.T) {
		t.Parallel()
		doc := mustDoc(t, `<html><body>
<a href="/?cat=9">S2</a><a href="/?cat=3">S1</a><a href="/?cat=9">again</a><a href="/?p=1">post</a>
</body></html>`)
		if diff := cmp.Diff([]int{3, 9}, CategoryIDs(doc)); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestSeriesFromTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title  string
		want   int
		wantOK bool
	}{
		{"Series 7 « Rare Pepe Directory", 7, true},
		{"series 12 | Rare Pepe Directory", 12, true},
		{"Series 36", 36, true},
		{"Series 37", 0, false},
		{"Series 0", 0, false},
		{"Uncategorized « Rare Pepe Directory", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			got, ok := SeriesFromTitle(tt.title)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}
