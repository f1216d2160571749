// Package organizer moves files from a source tree into per-category folders
// under a destination root and reports every completed move so the run can be
// undone.
//
// A run has two phases. Planning walks the source (recursively by default),
// skips anything already rooted at the destination, resolves each file's
// category and computes its target path. Execution then moves the files one
// by one; a failed move is recorded and skipped so the rest of the batch still
// runs. Plan exposes the first phase alone as a dry run.
//
// The organizer never writes the operation log itself. Callers persist
// Result.Log() when Result.Records is non-empty.
package organizer
