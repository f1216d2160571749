package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tidyup/internal/jobs"
	"tidyup/internal/undo"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var dropMissing bool

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Move the files of the last organize run back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			res, err := ctx.run(cmd, jobs.UndoCommand{DropMissing: dropMissing})
			if errors.Is(err, undo.ErrNoLog) {
				fmt.Fprintln(out, "No operation to undo")
				return nil
			}
			result, ok := res.(undo.Result)
			if !ok {
				return err
			}

			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Restored", statusOK, strconv.Itoa(result.Restored), colorize))
			if result.Skipped > 0 {
				fmt.Fprintln(out, renderStatusLine("Already restored", statusInfo, strconv.Itoa(result.Skipped), colorize))
			}
			if result.Dropped > 0 {
				fmt.Fprintln(out, renderStatusLine("Dropped", statusWarn, strconv.Itoa(result.Dropped), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Failed", countKind(result.Failed()), strconv.Itoa(result.Failed()), colorize))
			if result.Failed() > 0 {
				rows := make([][]string, 0, result.Failed())
				for _, f := range result.Failures {
					rows = append(rows, []string{f.Record.New, f.Record.Original, f.Err.Error()})
				}
				fmt.Fprintln(out, renderTable([]string{"From", "To", "Error"}, rows, nil))
				fmt.Fprintln(out, "Failed records were kept; run undo again after fixing them")
			}
			if missing := result.Missing(); missing > 0 {
				fmt.Fprintf(out, "%d records point at files that no longer exist and can never be restored; run 'tidyup undo --drop-missing' to forget them\n", missing)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dropMissing, "drop-missing", false, "Forget records whose files exist at neither path")
	return cmd
}
