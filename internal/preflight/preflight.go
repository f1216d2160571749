package preflight

import (
	"context"

	"tidyup/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes all applicable preflight checks for the given config.
// SMTP is only checked when it is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckWritableTarget("State directory", cfg.Paths.StateDir),
		CheckWritableTarget("Log directory", cfg.Paths.LogDir),
	}
	if cfg.SMTP.Configured() {
		results = append(results, CheckSMTP(ctx, cfg.SMTP))
	}
	return results
}

// CheckOrganize verifies that source is a usable directory and that dest
// exists or can be created.
func CheckOrganize(source, dest string) []Result {
	return []Result{
		CheckDirectoryAccess("Source folder", source),
		CheckWritableTarget("Destination folder", dest),
	}
}

// CheckUndo verifies the state directory holding the operation log.
func CheckUndo(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{CheckWritableTarget("State directory", cfg.Paths.StateDir)}
}
