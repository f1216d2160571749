package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tidyup/internal/jobs"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var maxFiles int

	cmd := &cobra.Command{
		Use:         "scan FOLDER",
		Short:       "List files with suspicious extensions, double extensions or sizes",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"requireConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxFiles > 0 {
				ctx.configValue().Scan.MaxFiles = maxFiles
			}
			res, err := ctx.run(cmd, jobs.ScanCommand{Folder: args[0]})
			if err != nil {
				return err
			}
			result := res.(jobs.ScanResult)

			if jsonOut {
				type finding struct {
					Path   string `json:"path"`
					Reason string `json:"reason"`
					Kind   string `json:"kind"`
				}
				payload := struct {
					Folder    string    `json:"folder"`
					Inspected int       `json:"inspected"`
					Truncated bool      `json:"truncated"`
					Findings  []finding `json:"findings"`
				}{
					Folder:    result.Folder,
					Inspected: result.Stats.Inspected,
					Truncated: result.Stats.Truncated,
					Findings:  make([]finding, 0, len(result.Findings)),
				}
				for _, f := range result.Findings {
					payload.Findings = append(payload.Findings, finding{Path: f.Path, Reason: f.Reason, Kind: string(f.Kind)})
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if len(result.Findings) == 0 {
				fmt.Fprintln(out, "No suspicious files found.")
			} else {
				rows := make([][]string, 0, len(result.Findings))
				for _, f := range result.Findings {
					rows = append(rows, []string{f.Path, f.Reason})
				}
				fmt.Fprintln(out, renderTable([]string{"Path", "Reason"}, rows, nil))
				fmt.Fprintf(out, "Found %d suspicious findings in %d files\n", len(result.Findings), result.Stats.Inspected)
			}
			if result.Stats.Truncated {
				fmt.Fprintf(out, "Scan stopped after %d files (scan.max_files)\n", result.Stats.Inspected)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output findings as JSON")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Override scan.max_files for this run")
	return cmd
}
