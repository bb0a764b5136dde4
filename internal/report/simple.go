package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/rpdarchive/internal/model"
)

// SimpleWriter outputs a human-readable text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints sections that have nothing to report.
	showEmpty bool

	// verbose adds the per-series counts and failure errors.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeSeries(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writeConflicts(&sb, summary)
	w.writeErrors(&sb, summary)
	w.writeArtifacts(&sb, summary)
	w.writeFooter(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                   RARE PEPE DIRECTORY ARCHIVE\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:     %s\n", summary.BaseURL)
	fmt.Fprintf(sb, "Mode:     %s\n", summary.Mode)
	fmt.Fprintf(sb, "Started:  %s\n", summary.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Elapsed:  %s\n", minutes(summary.Elapsed()))
	if summary.RunID > 0 {
		fmt.Fprintf(sb, "Run ID:   %d\n", summary.RunID)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *model.RunSummary) {
	section(sb, "COUNTS")
	fmt.Fprintf(sb, "  Unique names:   %d\n", summary.Discovered)
	fmt.Fprintf(sb, "  With series:    %d\n", summary.WithSeries)
	if summary.Mode == model.ModeFull {
		fmt.Fprintf(sb, "  Detail pages:   %d fetched, %d failed\n", summary.Fetched, summary.Failed)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSeries(sb *strings.Builder, summary *model.RunSummary) {
	if !w.verbose {
		return
	}
	rows := seriesRows(summary)
	if len(rows) == 0 && !w.showEmpty {
		return
	}
	section(sb, "SERIES")
	if len(rows) == 0 {
		sb.WriteString("  No series resolved\n\n")
		return
	}
	for _, r := range rows {
		fmt.Fprintf(sb, "  Series %2d: %d\n", r[0], r[1])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Failures) == 0 && !w.showEmpty {
		return
	}
	section(sb, "FAILED DETAIL PAGES")
	if len(summary.Failures) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, f := range summary.Failures {
		fmt.Fprintf(sb, "  [x] p=%s %s %s\n", f.PID, f.AssetName, f.URL)
		if w.verbose {
			fmt.Fprintf(sb, "      Error: %s\n", f.Error)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeConflicts(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Conflicts) == 0 && !w.showEmpty {
		return
	}
	section(sb, "DETAIL ID CONFLICTS")
	if len(summary.Conflicts) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, c := range summary.Conflicts {
		fmt.Fprintf(sb, "  [!] p=%s kept %s, dropped %s\n", c.PID, c.Kept, c.Dropped)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeErrors(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Errors) == 0 {
		return
	}
	section(sb, "ERRORS")
	for _, e := range summary.Errors {
		fmt.Fprintf(sb, "  [!] %s\n", e)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, summary *model.RunSummary) {
	section(sb, "ARTIFACTS")
	if len(summary.Artifacts) == 0 {
		sb.WriteString("  Nothing written\n\n")
		return
	}
	for _, a := range summary.Artifacts {
		fmt.Fprintf(sb, "  %s\n", a)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if summary.Mode == model.ModeDiscovery {
		sb.WriteString("Discovery only. Run `rpdarchive metadata build` and\n")
		sb.WriteString("`rpdarchive supply` to refresh the derived data.\n")
	} else {
		fmt.Fprintf(sb, "Done in %s\n", minutes(summary.Elapsed()))
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
