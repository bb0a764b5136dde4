package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/rpdarchive/internal/fetch"
	"github.com/nao1215/rpdarchive/internal/model"
)

const testBase = "http://rarepepedirectory.com"

func mustBase(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(testBase)
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}
	return u
}

// fakeFetcher serves canned pages by URL. Unknown URLs answer 404.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string), fail: make(map[string]error)}
}

func (f *fakeFetcher) Get(ctx context.Context, rawURL string) (*fetch.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if err, ok := f.fail[rawURL]; ok {
		return nil, err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &fetch.StatusError{URL: rawURL, StatusCode: http.StatusNotFound}
	}
	return &fetch.Response{URL: rawURL, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (f *fakeFetcher) Download(ctx context.Context, rawURL, dest string) error {
	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	return os.WriteFile(dest, resp.Body, 0o600)
}

func (f *fakeFetcher) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == rawURL {
			n++
		}
	}
	return n
}

// entry is one asset on a listing fixture page.
type entry struct {
	name string
	id   int
}

// listingPage renders a listing with structured post blocks and an
// optional older-posts link.
func listingPage(title, next string, entries ...entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<html><head><title>%s</title></head><body><div id=\"main\">", title)
	for _, e := range entries {
		fmt.Fprintf(&sb, `<article><h2 class="entry-title"><a href="%s/?p=%d">%s</a></h2></article>`, testBase, e.id, e.name)
	}
	if next != "" {
		fmt.Fprintf(&sb, `<div class="nav-previous"><a href="%s">Older posts</a></div>`, next)
	}
	sb.WriteString("</div></body></html>")
	return sb.String()
}

// recorderStub collects what the detail loop records.
type recorderStub struct {
	mu       sync.Mutex
	pages    []*model.Page
	failures []model.Failure
}

func (r *recorderStub) RecordPage(_ context.Context, page *model.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page)
	return nil
}

func (r *recorderStub) RecordFailure(_ context.Context, f model.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
	return nil
}
