package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidyup/internal/jobs"
	"tidyup/internal/mailer"
)

func newMailCommand(ctx *commandContext) *cobra.Command {
	mailCmd := &cobra.Command{
		Use:   "mail",
		Short: "Send run reports by email",
	}
	mailCmd.AddCommand(newMailTestCommand(ctx))
	mailCmd.AddCommand(newMailScheduleCommand(ctx))
	return mailCmd
}

func newMailTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test email using the smtp settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := mailer.Message{Subject: mailer.TestSubject, Body: mailer.TestBody}
			if _, err := ctx.run(cmd, jobs.MailCommand{Message: msg}); err != nil {
				return fmt.Errorf("test email failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test email sent")
			return nil
		},
	}
}

func newMailScheduleCommand(ctx *commandContext) *cobra.Command {
	var after time.Duration
	var subject string
	var attach string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Send a report after a delay; Ctrl-C cancels the pending send",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if after <= 0 {
				return errors.New("--after must be greater than zero")
			}
			msg := mailer.Message{
				Subject:    strings.TrimSpace(subject),
				Body:       mailer.ReportBody(reportSummary(ctx)),
				Attachment: strings.TrimSpace(attach),
			}
			res, err := ctx.run(cmd, jobs.MailCommand{Message: msg, Delay: after})
			if err != nil {
				return err
			}
			task := res.(*mailer.Task)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Email scheduled in %s (at %s)\n", after, time.Now().Add(after).Format(time.TimeOnly))

			waitCtx := cmd.Context()
			if waitCtx == nil {
				waitCtx = context.Background()
			}
			if err := task.Wait(waitCtx); err != nil {
				if waitCtx.Err() != nil {
					task.Cancel()
					fmt.Fprintln(out, "Scheduled email cancelled")
				}
				return err
			}
			fmt.Fprintln(out, "Email sent")
			return nil
		},
	}

	cmd.Flags().DurationVar(&after, "after", 0, "Delay before sending (e.g. 30s, 10m)")
	cmd.Flags().StringVar(&subject, "subject", mailer.ReportSubject, "Email subject")
	cmd.Flags().StringVar(&attach, "attach", "", "File to attach when it exists")
	return cmd
}

// reportSummary describes the last recorded organize run for the report body.
func reportSummary(ctx *commandContext) mailer.Summary {
	summary := mailer.Summary{LogPath: ctx.configValue().LogFilePath()}
	log, err := ctx.store().Load()
	if err != nil || log.Empty() {
		return summary
	}
	summary.Operation = "organize"
	summary.RunID = log.RunID
	summary.Moved = len(log.Moved)
	summary.FinishedAt = log.CreatedAt.Local()
	return summary
}
