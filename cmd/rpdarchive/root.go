package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/rpdarchive/internal/config"
	"github.com/nao1215/rpdarchive/internal/log"
)

// NewRootCmd creates the root command for rpdarchive.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpdarchive",
		Short: "Archive the Rare Pepe Directory for offline use",
		Long: `rpdarchive crawls the Rare Pepe Directory politely and stores what it finds
as deterministic JSON files, card images and a browsable offline clone.

The companion commands turn the archive into the data files of the static
site: ledger supply, merged asset metadata and wiki stub pages.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewArchiveCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewMetadataCmd())
	cmd.AddCommand(NewSupplyCmd())
	cmd.AddCommand(NewWikiCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a flag from the command or, failing that, from the
// root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the logger selected by the global flags and installs
// it as the default. Logs go to stderr so that progress on stdout stays
// readable.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getBoolFlag(cmd, "verbose")
	var logger *slog.Logger
	if getBoolFlag(cmd, "log-json") {
		logger = log.NewJSONLogger(os.Stderr, verbose)
	} else {
		logger = log.NewLogger(os.Stderr, verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadConfigFile applies the YAML config file onto cfg. An explicitly named
// file must exist; otherwise a missing file is not an error.
func loadConfigFile(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if explicit {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	file.ApplyTo(cfg)
	return nil
}
