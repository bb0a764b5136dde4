package crawler

import (
	"cmp"
	"log/slog"
	"net/url"
	"slices"
	"strconv"

	"github.com/nao1215/rpdarchive/internal/model"
	"github.com/nao1215/rpdarchive/internal/parser"
)

// Target is one detail page to visit.
type Target struct {
	ID   string
	Name string
	URL  string
}

// Session holds the discovery state of one crawl. It is passed explicitly
// through every phase and is not safe for concurrent use.
//
// Three merge policies apply and they differ on purpose:
//   - name -> detail id and name -> URL: the latest listing wins
//     (RecordDiscovery), so a series listing can correct a homepage guess.
//   - name -> series: the first listing that names a series wins
//     (AssignSeries).
//   - detail id -> name: the first name to claim an id keeps it
//     (claimDetailID); a second name is logged and ignored.
type Session struct {
	base   *url.URL
	logger *slog.Logger

	order        []string
	nameToID     map[string]string
	nameToURL    map[string]string
	nameToSeries map[string]int
	idOwner      map[string]string
	conflicts    []model.Conflict
}

// NewSession creates an empty session for the site rooted at base.
func NewSession(base *url.URL, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		base:         base,
		logger:       logger,
		nameToID:     make(map[string]string),
		nameToURL:    make(map[string]string),
		nameToSeries: make(map[string]int),
		idOwner:      make(map[string]string),
	}
}

// Base returns the site root.
func (s *Session) Base() *url.URL {
	return s.base
}

// Merge folds the pairs of one listing page into the session. series is
// the listing's series number, or 0 for the homepage. It returns the
// number of names seen for the first time.
func (s *Session) Merge(pairs []parser.Pair, series int) int {
	added := 0
	for _, p := range pairs {
		if s.RecordDiscovery(p.Name, p.DetailID, resolveURL(s.base, p.Href)) {
			added++
		}
		if series > 0 {
			s.AssignSeries(p.Name, series)
		}
	}
	return added
}

// RecordDiscovery stores the detail id and URL of name, overwriting any
// earlier value. It reports whether name is new to the session.
func (s *Session) RecordDiscovery(name, id, rawURL string) bool {
	if name == "" || id == "" {
		return false
	}
	_, known := s.nameToID[name]
	if !known {
		s.order = append(s.order, name)
	}
	s.nameToID[name] = id
	s.nameToURL[name] = rawURL
	s.claimDetailID(id, name)
	return !known
}

// AssignSeries sets the series of name unless one is already set.
// It reports whether the series was stored.
func (s *Session) AssignSeries(name string, series int) bool {
	if !model.ValidSeries(series) {
		return false
	}
	if _, ok := s.nameToSeries[name]; ok {
		return false
	}
	s.nameToSeries[name] = series
	return true
}

// claimDetailID gives id to name unless another name holds it already.
// An owner that has moved on to another id gives it up. Each conflicting
// (id, name) pair is logged once.
func (s *Session) claimDetailID(id, name string) {
	owner, ok := s.idOwner[id]
	if !ok || s.nameToID[owner] != id {
		s.idOwner[id] = name
		s.conflicts = slices.DeleteFunc(s.conflicts, func(c model.Conflict) bool {
			return c.PID == id
		})
		return
	}
	if owner == name {
		return
	}
	for _, c := range s.conflicts {
		if c.PID == id && c.Dropped == name {
			return
		}
	}
	s.conflicts = append(s.conflicts, model.Conflict{PID: id, Kept: owner, Dropped: name})
	s.logger.Warn("detail id claimed by another name", "p_id", id, "kept", owner, "dropped", name)
}

// DetailTargets returns one target per distinct detail id, sorted by
// numeric id. An id keeps the name that claimed it first, as long as that
// name still points at it.
func (s *Session) DetailTargets() []Target {
	byID := make(map[string]string)
	for _, name := range s.order {
		id := s.nameToID[name]
		if _, done := byID[id]; done {
			continue
		}
		if owner := s.idOwner[id]; owner != name && s.nameToID[owner] == id {
			byID[id] = owner
			continue
		}
		byID[id] = name
	}

	targets := make([]Target, 0, len(byID))
	for id, name := range byID {
		targets = append(targets, Target{ID: id, Name: name, URL: DetailURL(s.base, id)})
	}
	slices.SortFunc(targets, func(a, b Target) int {
		ai, _ := strconv.ParseUint(a.ID, 10, 64)
		bi, _ := strconv.ParseUint(b.ID, 10, 64)
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return targets
}

// SeriesOf returns the series assigned to name.
func (s *Session) SeriesOf(name string) (int, bool) {
	n, ok := s.nameToSeries[name]
	return n, ok
}

// detailIDOf returns the detail id recorded for name.
func (s *Session) detailIDOf(name string) (string, bool) {
	id, ok := s.nameToID[name]
	return id, ok
}

// UniqueCount returns the number of distinct names discovered.
func (s *Session) UniqueCount() int {
	return len(s.nameToID)
}

// WithSeriesCount returns the number of names that have a series.
func (s *Session) WithSeriesCount() int {
	return len(s.nameToSeries)
}

// SeriesMap builds the series map from the discovery state.
func (s *Session) SeriesMap() *model.SeriesMap {
	m := model.NewSeriesMap()
	for name, n := range s.nameToSeries {
		m.Add(n, name)
	}
	return m
}

// Links builds the link index from the discovery state.
func (s *Session) Links() model.LinkIndex {
	l := make(model.LinkIndex, len(s.nameToURL))
	for name, u := range s.nameToURL {
		l.Set(name, u)
	}
	return l
}

// Conflicts returns the detail ids claimed by two names, as long as both
// names still point at the id.
func (s *Session) Conflicts() []model.Conflict {
	var out []model.Conflict
	for _, c := range s.conflicts {
		if s.nameToID[c.Kept] == c.PID && s.nameToID[c.Dropped] == c.PID {
			out = append(out, c)
		}
	}
	return out
}

// DetailURL returns the canonical detail page URL of id: <base>/?p=<id>.
func DetailURL(base *url.URL, id string) string {
	return base.ResolveReference(&url.URL{Path: "/", RawQuery: "p=" + id}).String()
}

// CategoryURL returns the category listing URL: <base>/?cat=<id>.
func CategoryURL(base *url.URL, id int) string {
	return base.ResolveReference(&url.URL{Path: "/", RawQuery: "cat=" + strconv.Itoa(id)}).String()
}

// HomeURL returns the homepage URL: <base>/.
func HomeURL(base *url.URL) string {
	return base.ResolveReference(&url.URL{Path: "/"}).String()
}

// SeriesPageURL returns the pretty series listing URL: <base>/series-<n>/.
func SeriesPageURL(base *url.URL, n int) string {
	return base.ResolveReference(&url.URL{Path: "/series-" + strconv.Itoa(n) + "/"}).String()
}

func resolveURL(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
