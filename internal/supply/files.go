package supply

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/model"
)

// File names inside the data directory.
const (
	OutputFile    = "rarepepe-supply.json"
	OverridesFile = "rarepepe-supply-overrides.json"
)

// Meta is the "_meta" object of the output file.
type Meta struct {
	Source           string `json:"source"`
	Updated          string `json:"updated"`
	OverridesApplied bool   `json:"overrides_applied"`
	SkipDestructions bool   `json:"skip_destructions"`
}

// ReadOverrides loads an overrides file. A missing file yields no
// overrides.
func ReadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if os.IsNotExist(err) {
		return map[string]Override{}, nil
	}
	if err != nil {
		return nil, err
	}
	return archive.DecodeKeyed[Override](data)
}

// ReadFile loads a supply file.
func ReadFile(path string) (map[string]model.SupplyEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, err
	}
	return archive.DecodeKeyed[model.SupplyEntry](data)
}

// WriteFile writes entries with meta leading.
func WriteFile(path string, entries map[string]model.SupplyEntry, meta Meta) error {
	data, err := archive.EncodeKeyed(meta, entries)
	if err != nil {
		return fmt.Errorf("encode supply: %w", err)
	}
	return archive.WriteFileAtomic(path, data)
}

// RunResult describes a completed Run.
type RunResult struct {
	// Path is the output file; empty when nothing was written.
	Path    string
	Entries int
	Fetched int
}

// Run reads the series file and overrides from dataDir, builds the supply
// of every listed asset and writes OutputFile. A merge run with nothing
// to fetch writes nothing.
func (b *Builder) Run(ctx context.Context, dataDir string, opts Options, now time.Time) (*RunResult, error) {
	seriesPath := filepath.Join(dataDir, archive.SeriesFile)
	if err := archive.RequireFile(seriesPath); err != nil {
		return nil, err
	}
	series, err := archive.ReadSeries(seriesPath)
	if err != nil {
		return nil, err
	}

	if opts.Overrides == nil {
		overrides, err := ReadOverrides(filepath.Join(dataDir, OverridesFile))
		if err != nil {
			b.logger.Warn("could not load overrides", "error", err)
		}
		opts.Overrides = overrides
	}

	outPath := filepath.Join(dataDir, OutputFile)
	var existing map[string]model.SupplyEntry
	if opts.Merge {
		existing, err = ReadFile(outPath)
		if err != nil && !os.IsNotExist(err) {
			b.logger.Warn("could not load existing file for merge", "path", outPath, "error", err)
		}
		if err != nil {
			existing = nil
		}
	}

	res, err := b.Build(ctx, series.AllNames(), existing, opts)
	if err != nil {
		return nil, err
	}
	if opts.Merge && res.Fetched == 0 {
		fmt.Fprintln(b.out, "Nothing to fetch.")
		return &RunResult{Entries: len(res.Entries)}, nil
	}

	meta := Meta{
		Source:           "TokenScan API",
		Updated:          now.UTC().Format("2006-01-02T15:04:05Z"),
		OverridesApplied: len(opts.Overrides) > 0,
		SkipDestructions: opts.SkipDestructions,
	}
	if err := WriteFile(outPath, res.Entries, meta); err != nil {
		return nil, err
	}
	return &RunResult{Path: outPath, Entries: len(res.Entries), Fetched: res.Fetched}, nil
}
