package metadata

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/model"
	"github.com/nao1215/rpdarchive/internal/supply"
)

// FileName is the metadata file inside the data directory.
const FileName = "asset_metadata.json"

// Meta is the "_meta" object of the metadata file.
type Meta struct {
	Description string    `json:"description"`
	Built       string    `json:"built"`
	Sources     []string  `json:"sources"`
	Fields      FieldDocs `json:"fields"`
}

// FieldDocs documents the entry fields in file order.
type FieldDocs struct {
	Issued      string `json:"issued"`
	Destroyed   string `json:"destroyed"`
	Circulating string `json:"circulating"`
	Divisible   string `json:"divisible"`
	Note        string `json:"note"`
	SupplyCap   string `json:"supply_cap"`
	Artist      string `json:"artist"`
	Series      string `json:"series"`
	RPDURL      string `json:"rpd_url"`
}

// NewMeta returns the annotation written with a build at t.
func NewMeta(t time.Time) Meta {
	return Meta{
		Description: "Single source of truth for pepe data. Built from " + supply.OutputFile + ", " +
			archive.SeriesFile + ", " + archive.LinksFile + ", and seed " + FileName + " (artist/supply_cap).",
		Built: t.UTC().Format("2006-01-02T15:04:05Z"),
		Sources: []string{
			supply.OutputFile + " (issued, destroyed, circulating, divisible, note)",
			archive.SeriesFile + " (series)",
			archive.LinksFile + " (rpd_url)",
			FileName + " seed (artist, supply_cap when issued missing)",
		},
		Fields: FieldDocs{
			Issued:      "Total minted (from TokenScan).",
			Destroyed:   "Burned supply.",
			Circulating: "issued minus destroyed.",
			Divisible:   "Whether asset is divisible.",
			Note:        "e.g. API missing.",
			SupplyCap:   "Display cap (issued or manual fallback).",
			Artist:      "Bitcoin/XCP issuer address (artist page link).",
			Series:      "Rare Pepe series number.",
			RPDURL:      "Rare Pepe Directory URL.",
		},
	}
}

// ReadFile loads a metadata file.
func ReadFile(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, err
	}
	return archive.DecodeKeyed[Entry](data)
}

// ReadSeed loads the seed values of a metadata file.
func ReadSeed(path string) (map[string]SeedEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, err
	}
	return archive.DecodeKeyed[SeedEntry](data)
}

// WriteFile writes entries with meta leading.
func WriteFile(path string, entries map[string]Entry, meta Meta) error {
	data, err := archive.EncodeKeyed(meta, entries)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return archive.WriteFileAtomic(path, data)
}

// Build reads the supply, series and links files from dataDir and the seed
// from seedPath (dataDir/FileName when empty), then writes FileName. A
// missing or unreadable seed only loses the seeded values. It returns the
// output path and the number of assets written.
func Build(dataDir, seedPath string, now time.Time, logger *slog.Logger) (string, int, error) {
	supplyPath := filepath.Join(dataDir, supply.OutputFile)
	seriesPath := filepath.Join(dataDir, archive.SeriesFile)
	linksPath := filepath.Join(dataDir, archive.LinksFile)
	for _, p := range []string{supplyPath, seriesPath, linksPath} {
		if err := archive.RequireFile(p); err != nil {
			return "", 0, err
		}
	}

	supplyEntries, err := supply.ReadFile(supplyPath)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", supplyPath, err)
	}
	series, err := archive.ReadSeries(seriesPath)
	if err != nil {
		return "", 0, err
	}
	links, err := archive.ReadLinks(linksPath)
	if err != nil {
		return "", 0, err
	}

	if seedPath == "" {
		seedPath = filepath.Join(dataDir, FileName)
	}
	seed, err := ReadSeed(seedPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not load seed", "path", seedPath, "error", err)
		}
		seed = nil
	}

	entries := BuildAssetMetadata(supplyEntries, series, links, seed)
	out := filepath.Join(dataDir, FileName)
	if err := WriteFile(out, entries, NewMeta(now)); err != nil {
		return "", 0, err
	}
	return out, len(entries), nil
}

// RebuildSeries derives the series file in dataDir from FileName. It
// returns the output path and the number of series written.
func RebuildSeries(dataDir string) (string, int, error) {
	metaPath := filepath.Join(dataDir, FileName)
	if err := archive.RequireFile(metaPath); err != nil {
		return "", 0, err
	}
	entries, err := ReadFile(metaPath)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", metaPath, err)
	}
	series, err := BuildSeriesFromMetadata(entries)
	if err != nil {
		return "", 0, err
	}
	data, err := archive.Encode(series)
	if err != nil {
		return "", 0, err
	}
	out := filepath.Join(dataDir, archive.SeriesFile)
	if err := archive.WriteFileAtomic(out, data); err != nil {
		return "", 0, err
	}
	return out, len(series), nil
}

// SeriesMap converts the output of BuildSeriesFromMetadata back into a
// series map.
func SeriesMap(series map[string][]string) *model.SeriesMap {
	m := model.NewSeriesMap()
	for key, names := range series {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		for _, name := range names {
			m.Add(n, name)
		}
	}
	return m
}
