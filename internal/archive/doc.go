// Package archive writes the JSON artifacts of an archive run and reads
// them back for the downstream commands.
//
// Every artifact is written to a temporary file in the target directory
// and renamed into place, so an interrupted run never leaves a truncated
// file behind. Output is deterministic: the same state always produces
// byte-identical files.
package archive
