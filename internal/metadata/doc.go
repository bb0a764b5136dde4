// Package metadata merges the archive artifacts, the supply file and a
// seed into asset_metadata.json, the single per-asset record the static
// site loads, and derives the series file back from it.
package metadata
