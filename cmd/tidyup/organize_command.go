package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"tidyup/internal/jobs"
	"tidyup/internal/organizer"
)

const organizeLongHelp = `Move files from SOURCE into category folders under DEST.

Subfolders of SOURCE are walked when organize.recursive is set. A DEST inside
SOURCE is never walked. When SOURCE is DEST (or lies inside it) only the
category folders directly under DEST are left alone; other subfolders follow
organize.recursive. The state and log directories are always skipped.`

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "organize SOURCE DEST",
		Short:       "Move files from SOURCE into category folders under DEST",
		Long:        organizeLongHelp,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"requireConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, runErr := ctx.run(cmd, jobs.OrganizeCommand{Source: args[0], Dest: args[1], DryRun: dryRun})
			result, ok := res.(organizer.Result)
			if !ok {
				return runErr
			}
			if jsonOut {
				if err := writeJSON(cmd, organizeJSON(result)); err != nil {
					return err
				}
				return runErr
			}
			printOrganizeResult(cmd, result)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show planned moves without touching any file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the result as JSON")
	return cmd
}

func printOrganizeResult(cmd *cobra.Command, result organizer.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if result.DryRun {
		if len(result.Records) == 0 {
			fmt.Fprintln(out, "Nothing to organize")
			return
		}
		rows := make([][]string, 0, len(result.Records))
		for i, rec := range result.Records {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				rec.Original,
				filepath.Base(filepath.Dir(rec.New)),
				rec.New,
			})
		}
		fmt.Fprintln(out, renderTable([]string{"#", "File", "Category", "Target"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
		fmt.Fprintf(out, "%d files would be moved (dry run)\n", len(result.Records))
		return
	}

	fmt.Fprintln(out, renderStatusLine("Moved", countKind(0), strconv.Itoa(len(result.Records)), colorize))
	if result.Skipped > 0 {
		fmt.Fprintln(out, renderStatusLine("Already in place", statusInfo, strconv.Itoa(result.Skipped), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Failed", countKind(len(result.Failures)), strconv.Itoa(len(result.Failures)), colorize))
	if len(result.Records) > 0 {
		fmt.Fprintln(out, renderStatusLine("Run", statusInfo, result.RunID, colorize))
	}
	if len(result.Failures) > 0 {
		fmt.Fprintln(out, renderTable([]string{"File", "Error"}, failureRows(result.Failures), nil))
	}
}

func failureRows(failures []organizer.Failure) [][]string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.Path, f.Err.Error()})
	}
	return rows
}

type organizeOutput struct {
	RunID    string      `json:"run_id"`
	Source   string      `json:"source"`
	Dest     string      `json:"dest"`
	DryRun   bool        `json:"dry_run"`
	Moved    [][2]string `json:"moved"`
	Failures []failure   `json:"failures"`
	Skipped  int         `json:"skipped"`
}

type failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func organizeJSON(result organizer.Result) organizeOutput {
	out := organizeOutput{
		RunID:    result.RunID,
		Source:   result.Source,
		Dest:     result.Dest,
		DryRun:   result.DryRun,
		Moved:    make([][2]string, 0, len(result.Records)),
		Failures: make([]failure, 0, len(result.Failures)),
		Skipped:  result.Skipped,
	}
	for _, rec := range result.Records {
		out.Moved = append(out.Moved, [2]string{rec.Original, rec.New})
	}
	for _, f := range result.Failures {
		out.Failures = append(out.Failures, failure{Path: f.Path, Error: f.Err.Error()})
	}
	return out
}
