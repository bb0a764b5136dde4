package supply

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/shopspring/decimal"

	"github.com/nao1215/rpdarchive/internal/model"
)

// Override is a manual correction for one asset. Quantities may be written
// as JSON numbers or strings.
type Override struct {
	Issued      *decimal.Decimal `json:"issued"`
	Destroyed   *decimal.Decimal `json:"destroyed"`
	Circulating *decimal.Decimal `json:"circulating"`
	Divisible   *bool            `json:"divisible"`
	Note        string           `json:"note"`
}

// Options selects what a Build fetches.
type Options struct {
	// Merge keeps the existing entries and fetches only assets that are
	// absent or Missing.
	Merge bool

	// SkipDestructions records zero destructions instead of asking the API.
	SkipDestructions bool

	// Limit caps the number of assets considered; zero means all.
	Limit int

	// Overrides replace API values per asset.
	Overrides map[string]Override
}

// Result is the outcome of a Build.
type Result struct {
	// Entries holds one entry per considered asset, plus the kept entries
	// of a merge.
	Entries map[string]model.SupplyEntry

	// Fetched is the number of assets that were looked up.
	Fetched int
}

// Builder computes supply entries.
type Builder struct {
	client *Client
	logger *slog.Logger
	out    io.Writer
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithProgressWriter sets where progress lines are printed.
func WithProgressWriter(w io.Writer) BuilderOption {
	return func(b *Builder) {
		b.out = w
	}
}

// NewBuilder creates a builder querying client.
func NewBuilder(client *Client, opts ...BuilderOption) *Builder {
	b := &Builder{
		client: client,
		logger: slog.Default(),
		out:    io.Discard,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// APIMissing is the entry recorded for an asset the API could not resolve.
func APIMissing() model.SupplyEntry {
	return model.SupplyEntry{Destroyed: "0", Note: model.NoteAPIMissing}
}

// Build computes the entries of assets (sorted names). existing is only
// read in merge mode. On cancellation Build returns the partial result and
// the context error.
func (b *Builder) Build(ctx context.Context, assets []string, existing map[string]model.SupplyEntry, opts Options) (*Result, error) {
	if opts.Limit > 0 && len(assets) > opts.Limit {
		assets = assets[:opts.Limit]
		fmt.Fprintf(b.out, "Limited to first %d assets.\n", len(assets))
	}

	result := &Result{Entries: make(map[string]model.SupplyEntry, len(assets))}
	toFetch := assets
	if opts.Merge && existing != nil {
		maps.Copy(result.Entries, existing)
		toFetch = make([]string, 0)
		for _, a := range assets {
			if e, ok := existing[a]; !ok || e.Missing() {
				toFetch = append(toFetch, a)
			}
		}
		fmt.Fprintf(b.out, "Merge mode: %d assets to re-fetch (missing or API missing), %d kept.\n",
			len(toFetch), len(existing))
	}
	result.Fetched = len(toFetch)
	if len(toFetch) == 0 {
		return result, nil
	}

	fmt.Fprintf(b.out, "Polling the ledger API for %d assets.\n", len(toFetch))
	if len(opts.Overrides) > 0 {
		fmt.Fprintf(b.out, "  Applying %d overrides.\n", len(opts.Overrides))
	}

	for i, asset := range toFetch {
		if (i+1)%50 == 0 {
			fmt.Fprintf(b.out, "  %d/%d...\n", i+1, len(toFetch))
		}
		entry, err := b.entry(ctx, asset, opts)
		if err != nil {
			return result, err
		}
		result.Entries[asset] = entry
	}

	for _, a := range assets {
		if _, ok := result.Entries[a]; !ok {
			result.Entries[a] = APIMissing()
		}
	}
	return result, nil
}

// entry resolves one asset. Its only error is cancellation.
func (b *Builder) entry(ctx context.Context, asset string, opts Options) (model.SupplyEntry, error) {
	ov := opts.Overrides[asset]

	var issued, circulating string
	divisible := false
	if ov.Issued != nil {
		issued = ov.Issued.String()
		if ov.Divisible != nil {
			divisible = *ov.Divisible
		}
	} else {
		info, err := b.client.Asset(ctx, asset)
		if err != nil {
			if ctx.Err() != nil {
				return model.SupplyEntry{}, ctx.Err()
			}
			b.logger.Warn("asset lookup failed", "asset", asset, "error", err)
			return APIMissing(), nil
		}
		circulating = info.Supply
		divisible = info.Divisible
	}

	var destroyed string
	switch {
	case ov.Destroyed != nil:
		destroyed = ov.Destroyed.String()
	case opts.SkipDestructions:
		destroyed = "0"
	default:
		d, err := b.client.Destroyed(ctx, asset)
		if err != nil {
			if ctx.Err() != nil {
				return model.SupplyEntry{}, ctx.Err()
			}
			b.logger.Debug("destructions lookup failed", "asset", asset, "error", err)
			d = decimal.Zero
		}
		destroyed = d.String()
	}

	if ov.Circulating != nil {
		circulating = ov.Circulating.String()
	}
	if issued != "" {
		if circulating == "" {
			circulating = CirculatingFrom(issued, destroyed, divisible)
		}
	} else {
		issued = IssuedFrom(circulating, destroyed, divisible)
	}

	return model.SupplyEntry{
		Issued:      &issued,
		Destroyed:   destroyed,
		Circulating: &circulating,
		Divisible:   &divisible,
		Note:        ov.Note,
	}, nil
}
