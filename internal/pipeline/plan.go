package pipeline

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/clone"
	"github.com/nao1215/rpdarchive/internal/crawler"
)

// Components are the collaborators of an archive run.
type Components struct {
	Discoverer *crawler.Discoverer
	Writer     *archive.Writer

	// Detail is nil for a discovery-only run.
	Detail *crawler.DetailLoop

	// Fetcher, Base and Clone drive the listing mirror of a full run. A nil
	// Clone disables it.
	Fetcher crawler.PageFetcher
	Base    *url.URL
	Clone   *clone.Store

	// ReportDir receives SUMMARY.md; empty disables it.
	ReportDir string

	Now    func() time.Time
	Logger *slog.Logger
}

// ArchiveSteps returns the steps of a discovery-only run, or of a full run
// when c.Detail is set.
func ArchiveSteps(c Components) []Step {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	steps := []Step{
		NewHomepageStep(c.Discoverer),
		NewCategoryStep(c.Discoverer),
		NewSeriesWalkStep(c.Discoverer, logger),
		NewDiscoveryOutputStep(c.Writer),
	}
	if c.Detail != nil {
		steps = append(steps, NewDetailStep(c.Detail))
		if c.Clone != nil {
			steps = append(steps, NewMirrorStep(c.Fetcher, c.Base, c.Clone, logger))
		}
		steps = append(steps, NewFullOutputStep(c.Writer))
	}
	steps = append(steps, NewSummaryStep(c.Now))
	if c.ReportDir != "" {
		steps = append(steps, NewReportStep(c.ReportDir))
	}
	return steps
}
