// Package history keeps a SQLite record of every organize and undo run.
//
// The operation log only remembers the last organize run. History keeps a
// row per run with its counts so `tidyup log history` can show what happened
// over time. It is informational: nothing reads it to decide what to move.
package history
