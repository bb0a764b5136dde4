// Package wiki creates placeholder lore pages for assets that have none.
package wiki

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/model"
)

// DefaultParallelism bounds concurrent stub writes.
const DefaultParallelism = 8

// reserved pages of the wiki directory are never treated as assets.
var reserved = []string{"README", "TEMPLATE", "WIKI-PLAN"}

// Generator writes stub pages into a wiki directory.
type Generator struct {
	dir         string
	parallelism int
	logger      *slog.Logger
	out         io.Writer
}

// Option configures a Generator.
type Option func(*Generator)

// WithParallelism sets how many stubs are written at once.
func WithParallelism(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.parallelism = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithProgressWriter sets where the created pages are reported.
func WithProgressWriter(w io.Writer) Option {
	return func(g *Generator) {
		g.out = w
	}
}

// NewGenerator creates a generator for dir.
func NewGenerator(dir string, opts ...Option) *Generator {
	g := &Generator{
		dir:         dir,
		parallelism: DefaultParallelism,
		logger:      slog.Default(),
		out:         io.Discard,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stub renders the placeholder page of asset.
func Stub(asset string, series int) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.H1(asset)
	md.PlainText("")
	md.PlainText(markdown.Bold("Series:") + " " + strconv.Itoa(series))
	md.PlainText(markdown.Bold("Supply:") + " —")
	md.PlainText("")
	md.H2("Lore")
	md.PlainText("")
	md.PlainTextf("No wiki content yet. See %s or %s. To add lore, open a pull request, see %s.",
		markdown.Link("pepe.wtf", "https://pepe.wtf/asset/"+asset),
		markdown.Link("TokenScan", "https://tokenscan.io/asset/"+asset),
		markdown.Link("wiki/README.md", "README.md"))
	md.PlainText("")
	if err := md.Build(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Existing returns the asset names that already have a page. Reserved
// pages count as existing.
func (g *Generator) Existing() (map[string]struct{}, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(entries)+len(reserved))
	for _, r := range reserved {
		out[r] = struct{}{}
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		out[strings.TrimSuffix(e.Name(), ".md")] = struct{}{}
	}
	return out, nil
}

type pending struct {
	name   string
	series int
}

// Generate writes a stub for every asset of series without a page. A name
// listed in several series gets the lowest one. It returns the number of
// pages created; on error some pages may already exist.
func (g *Generator) Generate(ctx context.Context, series *model.SeriesMap) (int, error) {
	if err := os.MkdirAll(g.dir, 0o750); err != nil {
		return 0, err
	}
	existing, err := g.Existing()
	if err != nil {
		return 0, err
	}

	var todo []pending
	for n := model.MinSeries; n <= model.MaxSeries; n++ {
		for _, name := range series.Names(n) {
			if _, ok := existing[name]; ok {
				continue
			}
			if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
				g.logger.Warn("skipping unsafe asset name", "name", name)
				continue
			}
			existing[name] = struct{}{}
			todo = append(todo, pending{name: name, series: n})
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelism)
	for _, p := range todo {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			page, err := Stub(p.name, p.series)
			if err != nil {
				return err
			}
			path := filepath.Join(g.dir, p.name+".md")
			if err := archive.WriteFileAtomic(path, []byte(page)); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			g.logger.Debug("created wiki stub", "path", path)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	for i, p := range todo {
		if i < 5 || (i+1)%200 == 0 {
			fmt.Fprintf(g.out, "Created %s (%d so far)\n", filepath.Join(g.dir, p.name+".md"), i+1)
		}
	}
	fmt.Fprintf(g.out, "Done. Created %d stub wiki pages.\n", len(todo))
	return len(todo), nil
}
