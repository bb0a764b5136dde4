// Package supply reconciles the ledger supply of every archived asset
// with the token explorer API.
//
// The explorer reports the current (circulating) supply of an asset and,
// separately, its destructions. The originally issued supply is their sum.
// Manual corrections come from an overrides file. Assets the API cannot
// resolve keep an "API missing" entry so that a merge run retries them.
package supply
