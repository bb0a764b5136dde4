package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/clone"
	"github.com/nao1215/rpdarchive/internal/config"
	"github.com/nao1215/rpdarchive/internal/crawler"
	"github.com/nao1215/rpdarchive/internal/database"
	"github.com/nao1215/rpdarchive/internal/fetch"
	"github.com/nao1215/rpdarchive/internal/model"
	"github.com/nao1215/rpdarchive/internal/pipeline"
	"github.com/nao1215/rpdarchive/internal/report"
)

// NewArchiveCmd creates the archive command.
func NewArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Crawl the directory and write the archive",
		Long: `Archive discovers every asset listed on the directory, assigns series
numbers from the category listings and writes the link index and series map.

Unless --discovery-only is given, it then visits every detail page once,
downloads the card images, saves a rewritten offline copy of each page and
writes rpd-index.json. Requests are strictly sequential and paced.

Examples:
  # Full archive into ./archive
  rpdarchive archive

  # Only refresh the link index and series map
  rpdarchive archive --discovery-only

  # Slower pacing through a local SOCKS5 proxy
  rpdarchive archive --delay 3s --proxy 127.0.0.1:9050

Configuration file (.rpdarchive) example:
  delay: 2s
  retries: 3
  out_dir: /srv/rpd-archive`,
		Args: cobra.NoArgs,
		RunE: runArchiveCmd,
	}

	cmd.Flags().StringP("out-dir", "o", config.DefaultOutDir,
		"Archive root directory")
	cmd.Flags().String("site-data-dir", config.DefaultSiteDataDir,
		"Directory receiving copies of the link and series files (skipped if missing)")
	cmd.Flags().Bool("discovery-only", false,
		"Stop after listing discovery")
	cmd.Flags().Bool("no-clone", false,
		"Do not save an offline copy of the visited pages")
	cmd.Flags().Bool("no-images", false,
		"Do not download card images")

	cmd.Flags().StringP("base-url", "u", config.DefaultBaseURL,
		"Root URL of the directory site")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Minimum pause between two requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Retries for a failed request (0 disables retrying)")
	cmd.Flags().Int("max-listing-pages", config.DefaultMaxListingPages,
		"Page ceiling for one listing walk")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")

	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .rpdarchive in current or home directory)")

	return cmd
}

// runArchiveCmd executes the archive command.
func runArchiveCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildArchiveConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runArchive(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildArchiveConfig layers defaults, the config file and explicitly set
// flags, in that order.
func buildArchiveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}

	stringFlags := map[string]*string{
		"out-dir":       &cfg.OutDir,
		"site-data-dir": &cfg.SiteDataDir,
		"base-url":      &cfg.BaseURL,
		"user-agent":    &cfg.UserAgent,
		"proxy":         &cfg.ProxyAddress,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}

	durationFlags := map[string]*time.Duration{
		"delay":   &cfg.Delay,
		"timeout": &cfg.Timeout,
	}
	for name, dst := range durationFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetDuration(name); err != nil {
			return nil, err
		}
	}

	intFlags := map[string]*int{
		"retries":           &cfg.Retries,
		"max-listing-pages": &cfg.MaxListingPages,
	}
	for name, dst := range intFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetInt(name); err != nil {
			return nil, err
		}
	}

	if cfg.DiscoveryOnly, err = flags.GetBool("discovery-only"); err != nil {
		return nil, err
	}
	if cfg.SkipClone, err = flags.GetBool("no-clone"); err != nil {
		return nil, err
	}
	if cfg.SkipImages, err = flags.GetBool("no-images"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	return cfg, nil
}

// newFetcher builds the paced fetcher of an archive run.
func newFetcher(cfg *config.Config, logger *slog.Logger) (*fetch.Fetcher, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.ProxyAddress != "" {
		var err error
		client, err = fetch.NewProxyClient(cfg.ProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("using SOCKS5 proxy", "proxy", cfg.ProxyAddress)
	}

	return fetch.New(
		fetch.WithHTTPClient(client),
		fetch.WithDelay(cfg.Delay),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithRetries(cfg.Retries),
		fetch.WithBackoff(cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		fetch.WithLogger(logger),
	), nil
}

// runArchive executes one archive run and prints its summary to out.
func runArchive(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	base, err := cfg.ParsedBaseURL()
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	f, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}

	mode := model.ModeFull
	if cfg.DiscoveryOnly {
		mode = model.ModeDiscovery
	}
	startedAt := time.Now()

	logger.Info("starting archive",
		"base", cfg.BaseURL,
		"mode", mode,
		"outDir", cfg.OutDir,
		"delay", cfg.Delay,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.ArchiveDB
	var runID int64
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runID, err = db.StartRun(ctx, mode, base.String(), startedAt)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		logger.Info("database opened", "path", db.Path(), "run", runID)
	}

	c := pipeline.Components{
		Discoverer: crawler.NewDiscoverer(f, base,
			crawler.WithListingPageCeiling(cfg.MaxListingPages),
			crawler.WithDiscoveryLogger(logger)),
		Writer: archive.NewWriter(cfg.OutDir,
			archive.WithSiteDataDir(cfg.SiteDataDir),
			archive.WithLogger(logger)),
		Fetcher:   f,
		Base:      base,
		ReportDir: cfg.RPDDir(),
		Now:       time.Now,
		Logger:    logger,
	}
	if mode == model.ModeFull {
		opts := []crawler.DetailOption{
			crawler.WithProgressWriter(out),
			crawler.WithDetailLogger(logger),
		}
		if !cfg.SkipClone {
			c.Clone = clone.NewStore(cfg.SiteDir(), clone.NewRewriter(base.String()))
			opts = append(opts, crawler.WithClone(c.Clone))
		}
		if !cfg.SkipImages {
			opts = append(opts, crawler.WithImages(crawler.NewImageSaver(f, cfg.ImageDir())))
		}
		if db != nil {
			opts = append(opts, crawler.WithRecorder(db.Recorder(runID)))
		}
		c.Detail = crawler.NewDetailLoop(f, base, opts...)
	}

	st := pipeline.NewState(crawler.NewSession(base, logger), mode, startedAt)
	st.Summary.RunID = runID

	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithContinueOnError(true))
	p.AddSteps(pipeline.ArchiveSteps(c)...)

	fmt.Fprintf(out, "Archiving %s (%s run)...\n", base, mode)
	execErr := p.Execute(ctx, st)
	st.Finish(time.Now())

	if db != nil {
		// The run row is finished even after cancellation.
		if err := db.FinishRun(context.WithoutCancel(ctx), st.Summary); err != nil {
			logger.Error("failed to finish run record", "run", runID, "error", err)
		}
	}

	w := report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	if _, err := w.Write(st.Summary); err != nil {
		logger.Error("failed to print summary", "error", err)
	}

	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted; artifacts written so far are complete.")
		}
		return fmt.Errorf("archive failed: %w", execErr)
	}
	return nil
}
