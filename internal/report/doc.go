// Package report renders the summary of an archive run.
//
//   - SimpleWriter: plain text for the terminal, printed after every run
//   - MarkdownWriter: SUMMARY.md stored next to the JSON artifacts
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
