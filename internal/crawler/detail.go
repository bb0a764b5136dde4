package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/rpdarchive/internal/clone"
	"github.com/nao1215/rpdarchive/internal/model"
	"github.com/nao1215/rpdarchive/internal/parser"
)

// Recorder receives the outcome of every detail fetch. The run history
// database implements it.
type Recorder interface {
	RecordPage(ctx context.Context, page *model.Page) error
	RecordFailure(ctx context.Context, failure model.Failure) error
}

// DetailResult is the outcome of a DetailLoop run.
type DetailResult struct {
	// Assets holds one record per fetched page, in numeric id order.
	Assets []model.Asset

	// Failures lists the pages that could not be fetched.
	Failures []model.Failure

	// Series and Links index every fetched asset under its parsed name.
	// A failed target keeps its discovery name, series and URL. Names that
	// lost a detail id to another name are absent, so each detail id
	// appears under one name only.
	Series *model.SeriesMap
	Links  model.LinkIndex

	// Elapsed is the wall-clock time of the loop.
	Elapsed time.Duration
}

// DetailLoop visits every unique detail page of a Session.
type DetailLoop struct {
	fetcher  PageFetcher
	base     *url.URL
	clone    *clone.Store
	images   *ImageSaver
	recorder Recorder
	logger   *slog.Logger
	out      io.Writer
	now      func() time.Time
}

// DetailOption configures a DetailLoop.
type DetailOption func(*DetailLoop)

// WithClone saves every fetched page into store.
func WithClone(store *clone.Store) DetailOption {
	return func(l *DetailLoop) {
		l.clone = store
	}
}

// WithImages downloads every card image through saver.
func WithImages(saver *ImageSaver) DetailOption {
	return func(l *DetailLoop) {
		l.images = saver
	}
}

// WithRecorder reports every fetch outcome to r.
func WithRecorder(r Recorder) DetailOption {
	return func(l *DetailLoop) {
		l.recorder = r
	}
}

// WithProgressWriter sets where per-asset progress lines are printed.
func WithProgressWriter(w io.Writer) DetailOption {
	return func(l *DetailLoop) {
		l.out = w
	}
}

// WithDetailLogger sets the logger.
func WithDetailLogger(logger *slog.Logger) DetailOption {
	return func(l *DetailLoop) {
		l.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) DetailOption {
	return func(l *DetailLoop) {
		l.now = now
	}
}

// NewDetailLoop creates a loop fetching pages of the site rooted at base.
// Clone, images and recording are off unless enabled by options.
func NewDetailLoop(fetcher PageFetcher, base *url.URL, opts ...DetailOption) *DetailLoop {
	l := &DetailLoop{
		fetcher: fetcher,
		base:    base,
		logger:  slog.Default(),
		out:     io.Discard,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run visits s.DetailTargets() in order. A page that cannot be fetched or
// parsed is recorded as a failure and skipped; clone and image failures
// only lose that side effect. Run returns an error only when ctx is
// cancelled, together with the partial result.
func (l *DetailLoop) Run(ctx context.Context, s *Session) (*DetailResult, error) {
	targets := s.DetailTargets()
	progress := NewProgress(len(targets), l.now)
	result := &DetailResult{
		Assets: make([]model.Asset, 0, len(targets)),
		Series: model.NewSeriesMap(),
		Links:  make(model.LinkIndex, len(targets)),
	}

	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			result.Elapsed = progress.Elapsed()
			return result, err
		}
		fmt.Fprintln(l.out, progress.Line(i+1, t.Name))

		asset, err := l.visit(ctx, s, t)
		if err != nil {
			if ctx.Err() != nil {
				result.Elapsed = progress.Elapsed()
				return result, ctx.Err()
			}
			result.Failures = append(result.Failures, l.fail(ctx, t, err))
			n, _ := s.SeriesOf(t.Name)
			result.index(t.Name, t.URL, n)
			continue
		}
		result.Assets = append(result.Assets, *asset)
		n := 0
		if asset.Series != nil {
			n = *asset.Series
		}
		result.index(asset.AssetName, asset.RPDURL, n)
	}

	result.Elapsed = progress.Elapsed()
	return result, nil
}

func (r *DetailResult) index(name, rawURL string, series int) {
	r.Links.Set(name, rawURL)
	if series > 0 {
		r.Series.Add(series, name)
	}
}

func (l *DetailLoop) visit(ctx context.Context, s *Session, t Target) (*model.Asset, error) {
	resp, err := l.fetcher.Get(ctx, t.URL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	d := parser.ParseDetailDocument(doc, l.base)
	name := d.AssetName
	if name == "" {
		name = t.Name
	}

	asset := &model.Asset{
		AssetName:    name,
		AmountIssued: d.AmountIssued,
		Created:      d.Created,
		BlockscanURL: d.BlockscanURL,
		PrevP:        d.PrevP,
		NextP:        d.NextP,
		ImageURL:     d.ImageURL,
		PID:          t.ID,
		RPDURL:       t.URL,
	}
	if n, ok := s.SeriesOf(t.Name); ok {
		asset.Series = model.Ptr(n)
	}

	if l.clone != nil {
		if _, err := l.clone.SaveDetail(t.ID, resp.Body); err != nil {
			l.logger.Warn("clone save failed", "p_id", t.ID, "error", err)
		}
	}

	if l.images != nil && asset.ImageURL != nil {
		rel, err := l.images.Save(ctx, name, *asset.ImageURL)
		switch {
		case err == nil:
			asset.ImageLocalPath = &rel
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			l.logger.Warn("image download failed", "asset", name, "url", *asset.ImageURL, "error", err)
		}
	}

	if l.recorder != nil {
		page := &model.Page{
			PID:        t.ID,
			AssetName:  name,
			URL:        t.URL,
			StatusCode: resp.StatusCode,
			Title:      d.Title,
			Raw:        resp.Body,
			FetchedAt:  l.now(),
		}
		page.ComputeHash()
		if err := l.recorder.RecordPage(ctx, page); err != nil {
			l.logger.Warn("failed to record page", "p_id", t.ID, "error", err)
		}
	}

	return asset, nil
}

func (l *DetailLoop) fail(ctx context.Context, t Target, err error) model.Failure {
	l.logger.Error("detail fetch failed", "p_id", t.ID, "asset", t.Name, "url", t.URL, "error", err)
	f := model.Failure{
		PID:       t.ID,
		AssetName: t.Name,
		URL:       t.URL,
		Error:     err.Error(),
		Timestamp: l.now(),
	}
	if l.recorder != nil {
		if rerr := l.recorder.RecordFailure(ctx, f); rerr != nil {
			l.logger.Warn("failed to record failure", "p_id", t.ID, "error", rerr)
		}
	}
	return f
}
