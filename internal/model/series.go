package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Series numbers run from MinSeries to MaxSeries inclusive.
const (
	MinSeries = 1
	MaxSeries = 36
)

// ValidSeries reports whether n is a series number of the directory.
func ValidSeries(n int) bool {
	return n >= MinSeries && n <= MaxSeries
}

// SeriesMap maps a series number to the set of asset names it owns.
// Names are deduplicated on insert and always returned sorted.
// The zero value is not usable; call NewSeriesMap.
type SeriesMap struct {
	names map[int]map[string]struct{}
}

// NewSeriesMap returns an empty map with every series slot present.
func NewSeriesMap() *SeriesMap {
	m := &SeriesMap{names: make(map[int]map[string]struct{}, MaxSeries)}
	for n := MinSeries; n <= MaxSeries; n++ {
		m.names[n] = make(map[string]struct{})
	}
	return m
}

// Add inserts name into series n. It reports whether the map changed:
// false for an out-of-range series, an empty name or a name already present.
func (m *SeriesMap) Add(n int, name string) bool {
	if !ValidSeries(n) || name == "" {
		return false
	}
	set := m.names[n]
	if _, ok := set[name]; ok {
		return false
	}
	set[name] = struct{}{}
	return true
}

// Contains reports whether name is listed in series n.
func (m *SeriesMap) Contains(n int, name string) bool {
	if !ValidSeries(n) {
		return false
	}
	_, ok := m.names[n][name]
	return ok
}

// Names returns the sorted names of series n.
func (m *SeriesMap) Names(n int) []string {
	if !ValidSeries(n) {
		return nil
	}
	out := make([]string, 0, len(m.names[n]))
	for name := range m.names[n] {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Count returns the number of names in series n.
func (m *SeriesMap) Count(n int) int {
	if !ValidSeries(n) {
		return 0
	}
	return len(m.names[n])
}

// Total returns the number of (series, name) entries.
func (m *SeriesMap) Total() int {
	total := 0
	for _, set := range m.names {
		total += len(set)
	}
	return total
}

// Export returns the map in its JSON shape: every slot "1".."36" present,
// names sorted.
func (m *SeriesMap) Export() map[string][]string {
	out := make(map[string][]string, MaxSeries)
	for n := MinSeries; n <= MaxSeries; n++ {
		out[strconv.Itoa(n)] = m.Names(n)
	}
	return out
}

// MarshalJSON implements json.Marshaler. encoding/json sorts the string
// keys, so the output is stable across runs.
func (m *SeriesMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Export())
}

// UnmarshalJSON implements json.Unmarshaler. Keys starting with '_' carry
// annotations and are skipped; other keys outside 1..36 are rejected.
func (m *SeriesMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fresh := NewSeriesMap()
	for key, value := range raw {
		if strings.HasPrefix(key, "_") {
			continue
		}
		n, err := strconv.Atoi(key)
		if err != nil || !ValidSeries(n) {
			return fmt.Errorf("invalid series key %q", key)
		}
		var names []string
		if err := json.Unmarshal(value, &names); err != nil {
			return fmt.Errorf("series %q: %w", key, err)
		}
		for _, name := range names {
			fresh.Add(n, strings.TrimSpace(name))
		}
	}
	*m = *fresh
	return nil
}

// AllNames returns every name of every series, sorted and deduplicated.
func (m *SeriesMap) AllNames() []string {
	seen := make(map[string]struct{})
	for _, set := range m.names {
		for name := range set {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Index maps every name to its series. A name listed in several series
// maps to the lowest one.
func (m *SeriesMap) Index() map[string]int {
	out := make(map[string]int)
	for n := MaxSeries; n >= MinSeries; n-- {
		for name := range m.names[n] {
			out[name] = n
		}
	}
	return out
}
