package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/rpdarchive/internal/config"
	"github.com/nao1215/rpdarchive/internal/metadata"
)

// NewMetadataCmd creates the metadata command group.
func NewMetadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Build asset_metadata.json or derive the series file from it",
		Long: `Metadata maintains asset_metadata.json, the single per-asset record of
the static site.

  build   merges the supply file, the series file, the link index and the
          artists and caps of the previous metadata file
  series  rebuilds the series file from asset_metadata.json`,
		Args: cobra.NoArgs,
	}

	cmd.PersistentFlags().String("data-dir", config.DefaultSiteDataDir,
		"Directory holding the input and output files")

	cmd.AddCommand(newMetadataBuildCmd())
	cmd.AddCommand(newMetadataSeriesCmd())
	return cmd
}

func newMetadataBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Merge the data files into asset_metadata.json",
		Args:  cobra.NoArgs,
		RunE:  runMetadataBuildCmd,
	}
	cmd.Flags().String("seed", "",
		"Earlier metadata file providing artist and supply_cap (default: <data-dir>/asset_metadata.json)")
	return cmd
}

func runMetadataBuildCmd(cmd *cobra.Command, _ []string) error {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	seed, err := cmd.Flags().GetString("seed")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	path, n, err := metadata.Build(dataDir, seed, time.Now(), logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d assets to %s\n", n, path)
	return nil
}

func newMetadataSeriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "Rebuild the series file from asset_metadata.json",
		Args:  cobra.NoArgs,
		RunE:  runMetadataSeriesCmd,
	}
}

func runMetadataSeriesCmd(cmd *cobra.Command, _ []string) error {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}

	path, n, err := metadata.RebuildSeries(dataDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d series entries to %s\n", n, path)
	return nil
}
