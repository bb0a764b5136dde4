package model

import "time"

// RunMode names what an archive run covered.
type RunMode string

const (
	// ModeDiscovery is a run that stopped after listing discovery.
	ModeDiscovery RunMode = "discovery"
	// ModeFull is a run that also visited every detail page.
	ModeFull RunMode = "full"
)

// Failure describes one detail page that could not be archived, with
// enough context to retry it by hand.
type Failure struct {
	PID       string    `json:"p_id"`
	AssetName string    `json:"asset_name"`
	URL       string    `json:"url"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Conflict records a detail id that was discovered under two names.
// The first name keeps the id.
type Conflict struct {
	PID     string `json:"p_id"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// RunSummary aggregates the outcome of one archive run for reporting and
// for the run history.
type RunSummary struct {
	// RunID is the history database id, zero when history is disabled.
	RunID int64

	Mode       RunMode
	BaseURL    string
	StartedAt  time.Time
	FinishedAt time.Time

	// Discovered is the number of unique names found by discovery.
	Discovered int

	// WithSeries is the number of names that have a series number.
	WithSeries int

	// Fetched and Failed count detail pages in a full run.
	Fetched int
	Failed  int

	// SeriesCounts maps series number to its name count.
	SeriesCounts map[int]int

	Failures  []Failure
	Conflicts []Conflict

	// Artifacts lists every file written by the run.
	Artifacts []string

	// Errors collects non-fatal phase errors.
	Errors []string
}

// Elapsed returns the wall-clock duration of the run.
func (s *RunSummary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
