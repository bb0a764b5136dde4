package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/config"
	"github.com/nao1215/rpdarchive/internal/wiki"
)

// NewWikiCmd creates the wiki command.
func NewWikiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wiki",
		Short: "Create stub wiki pages for assets without one",
		Long: `Wiki writes a placeholder <NAME>.md for every asset of the series file
that has no page in the wiki directory yet. Existing pages are never
touched; README.md, TEMPLATE.md and WIKI-PLAN.md are not asset pages.`,
		Args: cobra.NoArgs,
		RunE: runWikiCmd,
	}

	cmd.Flags().String("data-dir", config.DefaultSiteDataDir,
		"Directory holding the series file")
	cmd.Flags().String("wiki-dir", "wiki",
		"Directory holding the wiki pages")
	cmd.Flags().IntP("parallel", "p", wiki.DefaultParallelism,
		"Number of pages written at once")

	return cmd
}

// runWikiCmd executes the wiki command.
func runWikiCmd(cmd *cobra.Command, _ []string) error {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	wikiDir, err := cmd.Flags().GetString("wiki-dir")
	if err != nil {
		return err
	}
	parallel, err := cmd.Flags().GetInt("parallel")
	if err != nil {
		return err
	}

	seriesPath := filepath.Join(dataDir, archive.SeriesFile)
	if err := archive.RequireFile(seriesPath); err != nil {
		return err
	}
	series, err := archive.ReadSeries(seriesPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	g := wiki.NewGenerator(wikiDir,
		wiki.WithParallelism(parallel),
		wiki.WithLogger(logger),
		wiki.WithProgressWriter(cmd.OutOrStdout()))
	if _, err := g.Generate(ctx, series); err != nil {
		return fmt.Errorf("wiki stubs: %w", err)
	}
	return nil
}
