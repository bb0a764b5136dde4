package model

import (
	"maps"
	"slices"
)

// LinkIndex maps an asset name to its canonical detail URL.
// It marshals as a flat JSON object with sorted keys.
type LinkIndex map[string]string

// Set records url for name, replacing any earlier value. Empty names or
// URLs are ignored.
func (l LinkIndex) Set(name, url string) {
	if name == "" || url == "" {
		return
	}
	l[name] = url
}

// Names returns the indexed names in sorted order.
func (l LinkIndex) Names() []string {
	return slices.Sorted(maps.Keys(l))
}
