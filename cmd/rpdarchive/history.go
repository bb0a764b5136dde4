package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/rpdarchive/internal/config"
	"github.com/nao1215/rpdarchive/internal/database"
	"github.com/nao1215/rpdarchive/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded archive runs",
		Long: `History lists the archive runs recorded in the history database, newest
first. With --failures it prints the detail pages a run could not fetch,
with the URL to retry by hand and when each page was last archived.

Examples:
  # Last 10 runs
  rpdarchive history

  # Failed pages of run 12
  rpdarchive history --failures 12`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 10, "Number of runs to show (0 for all)")
	cmd.Flags().Int64("failures", 0, "Show the failed pages of this run")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .rpdarchive in current or home directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("failures")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if err := loadConfigFile(cfg); err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if runID > 0 {
		return printFailures(cmd.Context(), cmd.OutOrStdout(), db, runID)
	}
	return printRuns(cmd.Context(), cmd.OutOrStdout(), db, limit)
}

func printRuns(ctx context.Context, out io.Writer, db *database.ArchiveDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODE\tSTARTED\tELAPSED\tNAMES\tSERIES\tFETCHED\tFAILED")
	for _, r := range runs {
		elapsed := "running"
		if !r.FinishedAt.IsZero() {
			elapsed = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Mode, r.StartedAt.Local().Format("2006-01-02 15:04"), elapsed,
			r.Discovered, r.WithSeries, detailCount(r, r.Fetched), detailCount(r, r.Failed))
	}
	return tw.Flush()
}

// detailCount renders a detail-page counter, which a discovery run lacks.
func detailCount(r database.Run, n int) string {
	if r.Mode != model.ModeFull {
		return "-"
	}
	return strconv.Itoa(n)
}

func printFailures(ctx context.Context, out io.Writer, db *database.ArchiveDB, runID int64) error {
	failures, err := db.ListFailures(ctx, runID)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Fprintf(out, "Run %d has no failed pages.\n", runID)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "P_ID\tNAME\tURL\tLAST OK\tERROR")
	for _, f := range failures {
		lastOK, err := lastFetched(ctx, db, f.PID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.PID, f.AssetName, f.URL, lastOK, f.Error)
	}
	return tw.Flush()
}

// lastFetched renders when pID was last archived successfully, by any run.
func lastFetched(ctx context.Context, db *database.ArchiveDB, pID string) (string, error) {
	page, err := db.GetPage(ctx, pID)
	if err != nil {
		return "", err
	}
	if page == nil {
		return "never", nil
	}
	return page.FetchedAt.Local().Format("2006-01-02 15:04"), nil
}
