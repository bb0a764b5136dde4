package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/clone"
	"github.com/nao1215/rpdarchive/internal/crawler"
	"github.com/nao1215/rpdarchive/internal/report"
)

// HomepageStep walks the homepage listing. Names found there have no
// series yet.
type HomepageStep struct {
	discoverer *crawler.Discoverer
}

// NewHomepageStep creates the homepage walk step.
func NewHomepageStep(d *crawler.Discoverer) *HomepageStep {
	return &HomepageStep{discoverer: d}
}

// Name returns the step name.
func (s *HomepageStep) Name() string {
	return "homepage_walk"
}

// Do executes the step. A failed homepage walk stops the run: without it
// the artifacts on disk would be replaced by a partial discovery.
func (s *HomepageStep) Do(ctx context.Context, st *State) error {
	if err := s.discoverer.WalkHomepage(ctx, st.Session); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return Fatal(s.Name(), err)
	}
	return nil
}

// CategoryStep resolves category ids to series numbers.
type CategoryStep struct {
	discoverer *crawler.Discoverer
}

// NewCategoryStep creates the category resolution step.
func NewCategoryStep(d *crawler.Discoverer) *CategoryStep {
	return &CategoryStep{discoverer: d}
}

// Name returns the step name.
func (s *CategoryStep) Name() string {
	return "category_resolution"
}

// Do executes the step. On error the mapping stays empty and the series
// walks have nothing to do.
func (s *CategoryStep) Do(ctx context.Context, st *State) error {
	mapping, err := s.discoverer.ResolveCategories(ctx)
	if err != nil {
		return err
	}
	st.CategoryToSeries = mapping
	return nil
}

// SeriesWalkStep walks every resolved series listing in ascending series
// order.
type SeriesWalkStep struct {
	discoverer *crawler.Discoverer
	logger     *slog.Logger
}

// NewSeriesWalkStep creates the series walk step.
func NewSeriesWalkStep(d *crawler.Discoverer, logger *slog.Logger) *SeriesWalkStep {
	return &SeriesWalkStep{discoverer: d, logger: logger}
}

// Name returns the step name.
func (s *SeriesWalkStep) Name() string {
	return "series_walks"
}

// Do executes the step.
func (s *SeriesWalkStep) Do(ctx context.Context, st *State) error {
	if len(st.CategoryToSeries) == 0 {
		s.logger.Warn("no series categories resolved, skipping series walks")
		return nil
	}
	return s.discoverer.WalkSeries(ctx, st.Session, st.CategoryToSeries)
}

// DiscoveryOutputStep writes the links and series files from the
// discovery state, so that a run interrupted later still leaves valid
// artifacts.
type DiscoveryOutputStep struct {
	writer *archive.Writer
}

// NewDiscoveryOutputStep creates the discovery artifact step.
func NewDiscoveryOutputStep(w *archive.Writer) *DiscoveryOutputStep {
	return &DiscoveryOutputStep{writer: w}
}

// Name returns the step name.
func (s *DiscoveryOutputStep) Name() string {
	return "discovery_output"
}

// Do executes the step. Write errors are fatal, and so is an empty
// discovery after a failed step: the earlier artifacts are kept.
func (s *DiscoveryOutputStep) Do(_ context.Context, st *State) error {
	if st.Session.UniqueCount() == 0 && len(st.Summary.Errors) > 0 {
		return Fatal(s.Name(), ErrNothingDiscovered)
	}
	links, err := s.writer.WriteLinks(st.Session.Links())
	if err != nil {
		return Fatal(s.Name(), err)
	}
	series, err := s.writer.WriteSeries(st.Session.SeriesMap())
	if err != nil {
		return Fatal(s.Name(), err)
	}
	st.AddArtifacts(links...)
	st.AddArtifacts(series...)
	return nil
}

// DetailStep visits every unique detail page.
type DetailStep struct {
	loop *crawler.DetailLoop
}

// NewDetailStep creates the detail fetch step.
func NewDetailStep(loop *crawler.DetailLoop) *DetailStep {
	return &DetailStep{loop: loop}
}

// Name returns the step name.
func (s *DetailStep) Name() string {
	return "detail_fetch"
}

// Do executes the step. The series map and link index of a full run are
// rebuilt from the fetched pages, with failed targets kept under their
// discovery name.
func (s *DetailStep) Do(ctx context.Context, st *State) error {
	result, err := s.loop.Run(ctx, st.Session)
	if result != nil {
		st.Series = result.Series
		st.Links = result.Links
		st.Assets = result.Assets
		st.Summary.Fetched = len(result.Assets)
		st.Summary.Failed = len(result.Failures)
		st.Summary.Failures = result.Failures
	}
	return err
}

// MirrorStep saves the homepage and the series listing pages into the
// offline clone.
type MirrorStep struct {
	fetcher crawler.PageFetcher
	base    *url.URL
	store   *clone.Store
	logger  *slog.Logger
}

// NewMirrorStep creates the listing mirror step.
func NewMirrorStep(fetcher crawler.PageFetcher, base *url.URL, store *clone.Store, logger *slog.Logger) *MirrorStep {
	return &MirrorStep{fetcher: fetcher, base: base, store: store, logger: logger}
}

// Name returns the step name.
func (s *MirrorStep) Name() string {
	return "listing_mirror"
}

// Do executes the step.
func (s *MirrorStep) Do(ctx context.Context, st *State) error {
	saved, err := crawler.MirrorListings(ctx, s.fetcher, s.base, s.store, s.logger)
	if len(saved) > 0 {
		st.AddArtifacts(s.store.Root())
	}
	return err
}

// FullOutputStep writes the index, links and series files of a full run.
type FullOutputStep struct {
	writer *archive.Writer
}

// NewFullOutputStep creates the full artifact step.
func NewFullOutputStep(w *archive.Writer) *FullOutputStep {
	return &FullOutputStep{writer: w}
}

// Name returns the step name.
func (s *FullOutputStep) Name() string {
	return "full_output"
}

// Do executes the step. Write errors are fatal.
func (s *FullOutputStep) Do(_ context.Context, st *State) error {
	if st.Series == nil || st.Links == nil {
		return Fatal(s.Name(), errors.New("detail step did not run"))
	}
	index, err := s.writer.WriteIndex(st.Assets)
	if err != nil {
		return Fatal(s.Name(), err)
	}
	st.AddArtifacts(index)

	// The discovery step already listed the links and series paths.
	if _, err := s.writer.WriteLinks(st.Links); err != nil {
		return Fatal(s.Name(), err)
	}
	if _, err := s.writer.WriteSeries(st.Series); err != nil {
		return Fatal(s.Name(), err)
	}
	return nil
}

// SummaryStep fills the run summary.
type SummaryStep struct {
	now func() time.Time
}

// NewSummaryStep creates the summary step.
func NewSummaryStep(now func() time.Time) *SummaryStep {
	if now == nil {
		now = time.Now
	}
	return &SummaryStep{now: now}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the step.
func (s *SummaryStep) Do(_ context.Context, st *State) error {
	st.Finish(s.now())
	return nil
}

// ReportStep writes SUMMARY.md into dir.
type ReportStep struct {
	dir string
}

// NewReportStep creates the Markdown summary step.
func NewReportStep(dir string) *ReportStep {
	return &ReportStep{dir: dir}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "summary_report"
}

// Do executes the step.
func (s *ReportStep) Do(_ context.Context, st *State) error {
	path := filepath.Join(s.dir, report.SummaryFile)
	st.AddArtifacts(path)

	var buf bytes.Buffer
	if _, err := report.NewMarkdownWriter(&buf).Write(st.Summary); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return archive.WriteFileAtomic(path, buf.Bytes())
}
