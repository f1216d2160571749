package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidyup/internal/history"
	"tidyup/internal/logs"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the operation log of the last organize run",
	}
	logCmd.AddCommand(newLogShowCommand(ctx))
	logCmd.AddCommand(newLogPathCommand(ctx))
	logCmd.AddCommand(newLogTailCommand(ctx))
	logCmd.AddCommand(newLogHistoryCommand(ctx))
	return logCmd
}

func newLogShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the moves that undo would reverse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.store().Load()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, log)
			}

			out := cmd.OutOrStdout()
			if log.Empty() {
				fmt.Fprintln(out, "No operation recorded")
				return nil
			}
			colorize := shouldColorize(out)
			if log.RunID != "" {
				fmt.Fprintln(out, renderStatusLine("Run", statusInfo, log.RunID, colorize))
			}
			if !log.CreatedAt.IsZero() {
				fmt.Fprintln(out, renderStatusLine("Created", statusInfo, log.CreatedAt.Local().Format(time.DateTime), colorize))
			}
			if log.Source != "" {
				fmt.Fprintln(out, renderStatusLine("Source", statusInfo, log.Source, colorize))
			}
			if log.Dest != "" {
				fmt.Fprintln(out, renderStatusLine("Destination", statusInfo, log.Dest, colorize))
			}
			if log.UndoFailures > 0 {
				fmt.Fprintln(out, renderStatusLine("Undo failures", statusWarn, strconv.Itoa(log.UndoFailures), colorize))
			}

			rows := make([][]string, 0, len(log.Moved))
			for i, rec := range log.Moved {
				rows = append(rows, []string{strconv.Itoa(i + 1), rec.Original, rec.New})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Original", "Moved to"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the raw operation log")
	return cmd
}

func newLogPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the operation log and activity log locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Operation log: %s\n", cfg.OperationLogPath())
			fmt.Fprintf(out, "Activity log:  %s\n", cfg.LogFilePath())
			fmt.Fprintf(out, "Run history:   %s\n", cfg.HistoryPath())
			return nil
		},
	}
}

func newLogTailCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the end of the activity log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configValue().LogFilePath()
			opts := logs.Options{Lines: lines}
			if id := strings.TrimSpace(runID); id != "" {
				if len(id) > 8 {
					id = id[:8]
				}
				opts.Match = id
			}

			out := cmd.OutOrStdout()
			recent, offset, err := logs.Last(path, opts)
			if err != nil {
				return err
			}
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx := cmd.Context()
			if followCtx == nil {
				followCtx = context.Background()
			}
			err = logs.Follow(followCtx, path, offset, 250*time.Millisecond, opts, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are appended")
	cmd.Flags().StringVar(&runID, "run", "", "Only lines of this organize run id")
	return cmd
}

func newLogHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent organize and undo runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.historyStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if clearAll {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d history entries\n", removed)
				return nil
			}

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				run := e.RunID
				if len(run) > 8 {
					run = run[:8]
				}
				status := "ok"
				if e.Error != "" {
					status = "error"
				}
				rows = append(rows, []string{
					e.StartedAt.Local().Format(time.DateTime),
					e.Operation,
					run,
					strconv.Itoa(e.Moved),
					strconv.Itoa(e.Failed),
					strconv.Itoa(e.Skipped),
					status,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Operation", "Run", "Moved", "Failed", "Skipped", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output runs as JSON")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all recorded runs")
	return cmd
}
