package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/rpdarchive/internal/config"
	"github.com/nao1215/rpdarchive/internal/fetch"
	"github.com/nao1215/rpdarchive/internal/supply"
)

// NewSupplyCmd creates the supply command.
func NewSupplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "supply",
		Short: "Fetch issued, destroyed and circulating supply from the ledger API",
		Long: `Supply polls the token explorer API for every asset of the series file and
writes rarepepe-supply.json. Entries from rarepepe-supply-overrides.json
replace the API values. Assets the API cannot resolve are recorded with the
note "API missing" so that a later --merge run retries only them.

Examples:
  # Full refresh
  rpdarchive supply --data-dir data

  # Retry only missing entries, without destruction lookups
  rpdarchive supply --merge --skip-destructions`,
		Args: cobra.NoArgs,
		RunE: runSupplyCmd,
	}

	cmd.Flags().String("data-dir", config.DefaultSiteDataDir,
		"Directory holding the series file and the supply files")
	cmd.Flags().String("api-url", config.DefaultSupplyAPIURL,
		"Explorer API root")
	cmd.Flags().DurationP("delay", "d", config.DefaultSupplyDelay,
		"Minimum pause between two API requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Retries for a failed request (0 disables retrying)")
	cmd.Flags().Bool("merge", false,
		"Keep existing entries and fetch only missing or API-missing ones")
	cmd.Flags().Bool("skip-destructions", false,
		"Record zero destructions instead of querying them")
	cmd.Flags().Int("limit", 0,
		"Only process the first N assets (0 for all)")

	return cmd
}

// runSupplyCmd executes the supply command.
func runSupplyCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dataDir, err := flags.GetString("data-dir")
	if err != nil {
		return err
	}
	apiURL, err := flags.GetString("api-url")
	if err != nil {
		return err
	}
	delay, err := flags.GetDuration("delay")
	if err != nil {
		return err
	}
	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return err
	}
	retries, err := flags.GetInt("retries")
	if err != nil {
		return err
	}

	var opts supply.Options
	if opts.Merge, err = flags.GetBool("merge"); err != nil {
		return err
	}
	if opts.SkipDestructions, err = flags.GetBool("skip-destructions"); err != nil {
		return err
	}
	if opts.Limit, err = flags.GetInt("limit"); err != nil {
		return err
	}

	switch {
	case delay < 0:
		return fmt.Errorf("configuration error: %w", config.ErrInvalidDelay)
	case timeout <= 0:
		return fmt.Errorf("configuration error: %w", config.ErrInvalidTimeout)
	case retries < 0:
		return fmt.Errorf("configuration error: %w", config.ErrInvalidRetries)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	f := fetch.New(
		fetch.WithHTTPClient(&http.Client{Timeout: timeout}),
		fetch.WithDelay(delay),
		fetch.WithUserAgent(config.DefaultSupplyUserAgent),
		fetch.WithAccept("application/json"),
		fetch.WithRetries(retries),
		fetch.WithBackoff(config.DefaultRetryBaseDelay, config.DefaultRetryMaxDelay),
		fetch.WithLogger(logger),
	)
	b := supply.NewBuilder(supply.NewClient(f, apiURL),
		supply.WithLogger(logger),
		supply.WithProgressWriter(cmd.OutOrStdout()))

	res, err := b.Run(ctx, dataDir, opts, time.Now())
	if err != nil {
		return err
	}
	if res.Path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries to %s\n", res.Entries, res.Path)
	}
	return nil
}
