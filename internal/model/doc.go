// Package model defines the data structures shared by the crawler, the
// output writer, the run history database and the downstream builders:
//   - Asset: one archived card with the fields parsed from its detail page
//   - SeriesMap: series number -> sorted, duplicate-free asset names
//   - LinkIndex: asset name -> canonical detail URL
//   - Page: a fetched detail page as recorded in the run history
//   - RunSummary: counts and artifacts of one archive run
//   - SupplyEntry: ledger supply figures for one asset
//
// The JSON tags match the artifact formats consumed by the static site.
package model
