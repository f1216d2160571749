// Package logs reads the append-only activity log for the CLI.
//
// Last returns the trailing lines of the file with bounded memory, optionally
// filtered by a substring such as a shortened run id. Follow keeps polling
// from an offset and emits new lines as they are appended, restarting from
// the top when the file is truncated or replaced. Both tolerate a missing
// file so `tidyup log tail` works before the first run.
package logs
