// Package database keeps the run history of rpdarchive in SQLite.
//
// ArchiveDB stores:
//   - one row per archive run with its counts
//   - the latest fetch of every detail page, keyed by detail id, with a
//     content hash so that later runs can tell which pages changed
//   - every detail page that failed, per run, for manual retry
//
// The driver is modernc.org/sqlite, a CGO-free SQLite, so the database is a
// single file that needs no server.
package database
