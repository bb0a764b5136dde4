// Package main provides the entry point for the rpdarchive CLI.
//
// rpdarchive mirrors the Rare Pepe Directory into an offline dataset:
// per-asset metadata, series membership, a link index, card images and a
// browsable clone of the site. Companion commands rebuild the data files
// the static site consumes.
//
// Usage:
//
//	rpdarchive archive
//	rpdarchive archive --discovery-only
//
// See --help for all available options.
package main

// main is the entry point for rpdarchive.
func main() {
	Execute()
}
