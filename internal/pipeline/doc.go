// Package pipeline runs an archive as a sequence of named steps over a
// shared State: homepage walk, category resolution, series walks,
// discovery artifacts, then (in a full run) the detail loop, listing
// mirror and final artifacts, and last the run summary.
//
// A step that fails with a FatalError stops the run. Any other error is
// recorded in the summary and the next step runs, because a missing
// series walk or clone page still leaves a useful archive.
package pipeline
