package crawler

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/rpdarchive/internal/log"
	"github.com/nao1215/rpdarchive/internal/model"
	"github.com/nao1215/rpdarchive/internal/parser"
)

func TestSessionMergePolicies(t *testing.T) {
	t.Parallel()

	t.Run("detail id and url follow the latest listing", func(t *testing.T) {
		t.Parallel()
		s := NewSession(mustBase(t), log.Discard())
		s.RecordDiscovery("A", "1", testBase+"/?p=1")
		s.RecordDiscovery("A", "2", testBase+"/?p=2")

		if id, _ := s.detailIDOf("A"); id != "2" {
			t.Errorf("expected id 2, got %s", id)
		}
		if got := s.Links()["A"]; got != testBase+"/?p=2" {
			t.Errorf("expected latest url, got %s", got)
		}
		if s.UniqueCount() != 1 {
			t.Errorf("expected 1 unique name, got %d", s.UniqueCount())
		}
	})

	t.Run("series keeps the first assignment", func(t *testing.T) {
		t.Parallel()
		s := NewSession(mustBase(t), log.Discard())
		if !s.AssignSeries("A", 3) {
			t.Fatal("expected first assignment to be stored")
		}
		if s.AssignSeries("A", 9) {
			t.Error("expected second assignment to be ignored")
		}
		if n, _ := s.SeriesOf("A"); n != 3 {
			t.Errorf("expected series 3, got %d", n)
		}
		if s.AssignSeries("B", 40) {
			t.Error("expected out of range series to be rejected")
		}
	})

	t.Run("merge resolves relative links and counts new names", func(t *testing.T) {
		t.Parallel()
		s := NewSession(mustBase(t), log.Discard())
		pairs := []parser.Pair{
			{Name: "A", Href: "/?p=1", DetailID: "1"},
			{Name: "B", Href: "?p=2", DetailID: "2"},
		}
		if n := s.Merge(pairs, 0); n != 2 {
			t.Errorf("expected 2 new names, got %d", n)
		}
		if n := s.Merge(pairs, 5); n != 0 {
			t.Errorf("expected 0 new names on repeat, got %d", n)
		}
		if got := s.Links()["A"]; got != testBase+"/?p=1" {
			t.Errorf("expected resolved url, got %s", got)
		}
		if s.WithSeriesCount() != 2 {
			t.Errorf("expected series from the second listing, got %d", s.WithSeriesCount())
		}
	})
}

func TestSessionDetailTargets(t *testing.T) {
	t.Parallel()

	t.Run("first name keeps a shared detail id", func(t *testing.T) {
		t.Parallel()
		s := NewSession(mustBase(t), log.Discard())
		s.RecordDiscovery("FIRST", "5", testBase+"/?p=5")
		s.RecordDiscovery("SECOND", "5", testBase+"/?p=5")
		s.RecordDiscovery("SECOND", "5", testBase+"/?p=5")

		want := []Target{{ID: "5", Name: "FIRST", URL: testBase + "/?p=5"}}
		if diff := cmp.Diff(want, s.DetailTargets()); diff != "" {
			t.Errorf("targets mismatch (-want +got):\n%s", diff)
		}
		wantConflicts := []model.Conflict{{PID: "5", Kept: "FIRST", Dropped: "SECOND"}}
		if diff := cmp.Diff(wantConflicts, s.Conflicts()); diff != "" {
			t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("targets are sorted numerically", func(t *testing.T) {
		t.Parallel()
		s := NewSession(mustBase(t), log.Discard())
		for _, id := range []string{"100", "9", "10"} {
			s.RecordDiscovery("N"+id, id, "")
		}
		var ids []string
		for _, tg := range s.DetailTargets() {
			ids = append(ids, tg.ID)
		}
		if diff := cmp.Diff([]string{"9", "10", "100"}, ids); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("id abandoned by its first owner is still visited", func(t *testing.T) {
		t.Parallel()
		s := NewSession(mustBase(t), log.Discard())
		s.RecordDiscovery("A", "1", "")
		s.RecordDiscovery("A", "2", "")
		s.RecordDiscovery("B", "1", "")

		want := []Target{
			{ID: "1", Name: "B", URL: testBase + "/?p=1"},
			{ID: "2", Name: "A", URL: testBase + "/?p=2"},
		}
		if diff := cmp.Diff(want, s.DetailTargets()); diff != "" {
			t.Errorf("targets mismatch (-want +got):\n%s", diff)
		}
		if c := s.Conflicts(); len(c) != 0 {
			t.Errorf("expected no conflicts, got %+v", c)
		}
	})

	t.Run("conflict is dropped when the kept name moves away", func(t *testing.T) {
		t.Parallel()
		s := NewSession(mustBase(t), log.Discard())
		s.RecordDiscovery("A", "1", "")
		s.RecordDiscovery("B", "1", "")
		if len(s.Conflicts()) != 1 {
			t.Fatalf("expected 1 conflict, got %+v", s.Conflicts())
		}
		s.RecordDiscovery("A", "2", "")

		if c := s.Conflicts(); len(c) != 0 {
			t.Errorf("expected no conflicts, got %+v", c)
		}
		want := []Target{
			{ID: "1", Name: "B", URL: testBase + "/?p=1"},
			{ID: "2", Name: "A", URL: testBase + "/?p=2"},
		}
		if diff := cmp.Diff(want, s.DetailTargets()); diff != "" {
			t.Errorf("targets mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestSessionDedupInvariant(t *testing.T) {
	t.Parallel()

	s := NewSession(mustBase(t), log.Discard())
	for i := range 200 {
		name := fmt.Sprintf("ASSET%d", i%37)
		id := fmt.Sprintf("%d", (i*7)%53)
		s.RecordDiscovery(name, id, "")
		s.AssignSeries(name, 1+i%36)
	}

	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)
	for _, tg := range s.DetailTargets() {
		if seenIDs[tg.ID] {
			t.Errorf("detail id %s visited twice", tg.ID)
		}
		if seenNames[tg.Name] {
			t.Errorf("name %s used for two ids", tg.Name)
		}
		seenIDs[tg.ID] = true
		seenNames[tg.Name] = true
	}

	m := s.SeriesMap()
	for n := model.MinSeries; n <= model.MaxSeries; n++ {
		names := m.Names(n)
		for i := 1; i < len(names); i++ {
			if names[i-1] >= names[i] {
				t.Errorf("series %d not sorted or duplicated: %v", n, names)
			}
		}
	}
}

func TestURLHelpers(t *testing.T) {
	t.Parallel()

	base := mustBase(t)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"detail", DetailURL(base, "482"), "http://rarepepedirectory.com/?p=482"},
		{"category", CategoryURL(base, 5), "http://rarepepedirectory.com/?cat=5"},
		{"home", HomeURL(base), "http://rarepepedirectory.com/"},
		{"series page", SeriesPageURL(base, 12), "http://rarepepedirectory.com/series-12/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}
