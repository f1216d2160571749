// Package main hosts the tidyup CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into job
// commands (organize, undo, scan, mail) executed by the internal dispatcher,
// plus operation log and run history inspection and configuration
// scaffolding. It centralizes configuration resolution and logger setup so
// subcommands only render results.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through dedicated commands or flags.
package main
