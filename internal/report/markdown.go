package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/rpdarchive/internal/model"
)

// MarkdownWriter outputs the summary as Markdown, stored as SUMMARY.md
// beside the archive artifacts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSeries(md, summary)
	w.writeFailures(md, summary)
	w.writeConflicts(md, summary)
	w.writeArtifacts(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Rare Pepe Directory Archive")
	md.PlainText("")

	rows := [][]string{
		{"Site", "`" + summary.BaseURL + "`"},
		{"Mode", string(summary.Mode)},
		{"Started", summary.StartedAt.Format(timeLayout)},
		{"Elapsed", minutes(summary.Elapsed())},
		{"Unique names", strconv.Itoa(summary.Discovered)},
		{"With series", strconv.Itoa(summary.WithSeries)},
	}
	if summary.Mode == model.ModeFull {
		rows = append(rows,
			[]string{"Detail pages fetched", strconv.Itoa(summary.Fetched)},
			[]string{"Detail pages failed", strconv.Itoa(summary.Failed)},
		)
	}
	if summary.RunID > 0 {
		rows = append(rows, []string{"Run ID", strconv.FormatInt(summary.RunID, 10)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(summary.Errors) > 0 {
		md.Warningf("%d phase(s) reported errors; the artifacts may be incomplete.", len(summary.Errors))
		md.PlainText("")
		md.BulletList(summary.Errors...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSeries(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Series")
	md.PlainText("")

	rows := seriesRows(summary)
	if len(rows) == 0 {
		md.PlainText("No series resolved.")
		md.PlainText("")
		return
	}

	table := make([][]string, len(rows))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Names per series"),
		piechart.WithShowData(true),
	)
	for i, r := range rows {
		label := "Series " + strconv.Itoa(r[0])
		table[i] = []string{label, strconv.Itoa(r[1])}
		chart.LabelAndIntValue(label, uint64(r[1])) //nolint:gosec // counts are never negative
	}
	md.Table(markdown.TableSet{
		Header: []string{"Series", "Names"},
		Rows:   table,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *model.RunSummary) {
	if summary.Mode != model.ModeFull {
		return
	}
	md.H2("Failed detail pages")
	md.PlainText("")

	if len(summary.Failures) == 0 {
		md.Tip("Every detail page was archived.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Failures))
	for i, f := range summary.Failures {
		rows[i] = []string{f.PID, f.AssetName, f.URL, truncateString(f.Error, 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"p_id", "Asset", "URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
	md.Note("Failed pages can be retried by running the archive again; `rpdarchive history --failures <run>` lists them.")
	md.PlainText("")
}

func (w *MarkdownWriter) writeConflicts(md *markdown.Markdown, summary *model.RunSummary) {
	if len(summary.Conflicts) == 0 {
		return
	}
	md.H2("Detail id conflicts")
	md.PlainText("")
	rows := make([][]string, len(summary.Conflicts))
	for i, c := range summary.Conflicts {
		rows[i] = []string{c.PID, c.Kept, c.Dropped}
	}
	md.Table(markdown.TableSet{
		Header: []string{"p_id", "Kept", "Dropped"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Artifacts")
	md.PlainText("")
	if len(summary.Artifacts) == 0 {
		md.PlainText("Nothing written.")
		md.PlainText("")
		return
	}
	items := make([]string, len(summary.Artifacts))
	for i, a := range summary.Artifacts {
		items[i] = "`" + a + "`"
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [rpdarchive](https://github.com/nao1215/rpdarchive)*")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
