package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/model"
)

// ErrMissingInput is returned when a required input file does not exist.
var ErrMissingInput = archive.ErrMissingInput

// Entry is the merged record of one asset. Absent values are omitted.
type Entry struct {
	Issued      string          `json:"issued,omitempty"`
	Destroyed   string          `json:"destroyed,omitempty"`
	Circulating string          `json:"circulating,omitempty"`
	Divisible   *bool           `json:"divisible,omitempty"`
	Note        string          `json:"note,omitempty"`
	SupplyCap   json.RawMessage `json:"supply_cap,omitempty"`
	Artist      string          `json:"artist,omitempty"`
	Series      string          `json:"series,omitempty"`
	RPDURL      string          `json:"rpd_url,omitempty"`
}

// SeedEntry holds the hand-maintained values carried over from an earlier
// metadata file.
type SeedEntry struct {
	Artist    json.RawMessage `json:"artist"`
	SupplyCap json.RawMessage `json:"supply_cap"`
}

// BuildAssetMetadata merges the inputs into one entry per asset. The asset
// set is the union of the series names, the supply keys and the link keys.
// The supply cap is the integer part of issued when issued is known and
// unannotated, else the seed cap.
func BuildAssetMetadata(
	supply map[string]model.SupplyEntry,
	series *model.SeriesMap,
	links model.LinkIndex,
	seed map[string]SeedEntry,
) map[string]Entry {
	names := make(map[string]struct{})
	for _, n := range series.AllNames() {
		names[n] = struct{}{}
	}
	for n := range supply {
		if !strings.HasPrefix(n, "_") {
			names[n] = struct{}{}
		}
	}
	for n := range links {
		if !strings.HasPrefix(n, "_") {
			names[n] = struct{}{}
		}
	}

	seriesOf := series.Index()
	out := make(map[string]Entry, len(names))
	for name := range names {
		var e Entry
		if s, ok := supply[name]; ok {
			if s.Issued != nil {
				e.Issued = *s.Issued
			}
			e.Destroyed = s.Destroyed
			if s.Circulating != nil {
				e.Circulating = *s.Circulating
			}
			e.Divisible = s.Divisible
			e.Note = s.Note
		}

		if e.Issued != "" && e.Note == "" {
			if d, err := decimal.NewFromString(e.Issued); err == nil {
				e.SupplyCap = json.RawMessage(d.Truncate(0).String())
			}
		}
		if sd, ok := seed[name]; ok {
			if e.SupplyCap == nil {
				e.SupplyCap = seedCap(sd.SupplyCap)
			}
			e.Artist = text(sd.Artist)
		}

		if n, ok := seriesOf[name]; ok {
			e.Series = strconv.Itoa(n)
		}
		e.RPDURL = links[name]
		out[name] = e
	}
	return out
}

// seedCap normalises a seed cap to an integer when it parses as a number
// and keeps it verbatim otherwise. Null and empty caps yield nil.
func seedCap(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return raw
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return raw
	}
	return json.RawMessage(d.Truncate(0).String())
}

// text renders a JSON scalar as a string. Null and empty values yield "".
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

// BuildSeriesFromMetadata groups the assets by their series. Only series
// with at least one asset appear; names are sorted.
func BuildSeriesFromMetadata(meta map[string]Entry) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, name := range slices.Sorted(maps.Keys(meta)) {
		if strings.HasPrefix(name, "_") {
			continue
		}
		s := strings.TrimSpace(meta[name].Series)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || !model.ValidSeries(n) {
			return nil, fmt.Errorf("asset %s: invalid series %q", name, s)
		}
		key := strconv.Itoa(n)
		out[key] = append(out[key], name)
	}
	return out, nil
}
