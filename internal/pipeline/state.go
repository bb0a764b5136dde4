package pipeline

import (
	"time"

	"github.com/nao1215/rpdarchive/internal/crawler"
	"github.com/nao1215/rpdarchive/internal/model"
)

// State is what the steps of one run share.
type State struct {
	// Session holds the discovery state.
	Session *crawler.Session

	// CategoryToSeries is the mapping found by category resolution.
	CategoryToSeries map[int]int

	// Series and Links are the artifacts of a full run, built by the
	// detail step from the fetched pages.
	Series *model.SeriesMap
	Links  model.LinkIndex

	// Assets holds the records of the fetched detail pages.
	Assets []model.Asset

	// Summary is filled in as the run progresses.
	Summary *model.RunSummary

	// Performed lists the steps that ran, including failed ones.
	Performed []string
}

// NewState creates the state of a run starting at startedAt.
func NewState(s *crawler.Session, mode model.RunMode, startedAt time.Time) *State {
	return &State{
		Session: s,
		Summary: &model.RunSummary{
			Mode:         mode,
			BaseURL:      s.Base().String(),
			StartedAt:    startedAt,
			SeriesCounts: make(map[int]int),
		},
	}
}

// AddArtifacts records written files in the summary.
func (st *State) AddArtifacts(paths ...string) {
	st.Summary.Artifacts = append(st.Summary.Artifacts, paths...)
}

// seriesForSummary is the map whose counts the summary reports: the merged
// full-run map when there is one, else the discovery state.
func (st *State) seriesForSummary() *model.SeriesMap {
	if st.Series != nil {
		return st.Series
	}
	return st.Session.SeriesMap()
}

// Finish fills the counts of the summary from the state and stamps the
// finish time. It may be called more than once.
func (st *State) Finish(now time.Time) {
	sum := st.Summary
	sum.FinishedAt = now
	sum.Discovered = st.Session.UniqueCount()
	sum.WithSeries = st.Session.WithSeriesCount()
	sum.Conflicts = st.Session.Conflicts()

	series := st.seriesForSummary()
	sum.SeriesCounts = make(map[int]int)
	for n := model.MinSeries; n <= model.MaxSeries; n++ {
		if c := series.Count(n); c > 0 {
			sum.SeriesCounts[n] = c
		}
	}
}
