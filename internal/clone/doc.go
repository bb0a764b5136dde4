// Package clone stores an offline-browsable copy of the directory site.
// Pages are saved with their links rewritten so the clone can be opened
// from disk without touching the live site.
package clone
