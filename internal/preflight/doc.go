// Package preflight provides readiness checks for the folders and services
// tidyup depends on.
//
// These checks run in two contexts:
//   - The organize and undo commands call CheckOrganize / CheckUndo before
//     touching any file. A failed source check aborts the run.
//   - The CLI "config validate" command calls RunAll to display overall
//     health, including SMTP reachability when mail is configured.
package preflight
