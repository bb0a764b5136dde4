package report

import (
	"fmt"
	"io"
	"time"

	"github.com/nao1215/rpdarchive/internal/model"
)

// SummaryFile is the Markdown summary written next to the JSON artifacts.
const SummaryFile = "SUMMARY.md"

// Writer outputs a run summary.
type Writer interface {
	// Write renders summary and returns the number of bytes written.
	Write(summary *model.RunSummary) (int, error)
}

// MultiWriter writes to multiple Writers, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers and returns the
// total bytes written.
func (m *MultiWriter) Write(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// minutes renders d as "12.3m", the unit the progress lines use.
func minutes(d time.Duration) string {
	return fmt.Sprintf("%.1fm", d.Minutes())
}

const timeLayout = "2006-01-02 15:04:05 MST"

// seriesRows returns the non-empty series as (number, count) pairs in
// series order.
func seriesRows(summary *model.RunSummary) [][2]int {
	var rows [][2]int
	for n := model.MinSeries; n <= model.MaxSeries; n++ {
		if c := summary.SeriesCounts[n]; c > 0 {
			rows = append(rows, [2]int{n, c})
		}
	}
	return rows
}
