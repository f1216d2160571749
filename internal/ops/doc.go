// Package ops defines shared helpers consumed by the organize, undo and scan
// operations and the adapters that drive them.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep failure
//     messages consistent and classifiable with errors.Is.
//   - Context helpers that stamp run identifiers and operation names for
//     logging.
//
// Use these helpers when wiring new operations so error handling and
// observability stay uniform across commands.
package ops
