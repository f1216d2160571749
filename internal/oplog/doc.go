// Package oplog persists the record of the most recent organize run so it can
// be undone.
//
// The log is a single snapshot, not a history: every organize run that moves
// at least one file overwrites it, a fully successful undo deletes it, and a
// partial undo rewrites it with only the records that still need restoring.
// Writes go through a temp file and rename so a crash never leaves a
// half-written log behind. A sibling lock file serializes organize and undo
// across processes.
package oplog
