package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tidyup/internal/history"
	"tidyup/internal/logging"
	"tidyup/internal/mailer"
	"tidyup/internal/ops"
	"tidyup/internal/organizer"
	"tidyup/internal/preflight"
	"tidyup/internal/scanner"
	"tidyup/internal/undo"
)

// Command is a unit of work the dispatcher can run.
type Command interface {
	// Name identifies the command in logs and messages.
	Name() string
	run(ctx context.Context, env *Env) (any, error)
	locksLog() bool
}

// OrganizeCommand sorts Source into Dest. DryRun only plans.
type OrganizeCommand struct {
	Source string
	Dest   string
	DryRun bool
}

func (OrganizeCommand) Name() string { return "organize" }

func (c OrganizeCommand) locksLog() bool { return !c.DryRun }

func (c OrganizeCommand) run(ctx context.Context, env *Env) (any, error) {
	for _, check := range preflight.CheckOrganize(c.Source, c.Dest) {
		if !check.Passed {
			return nil, ops.Wrap(ops.ErrValidation, "organize", "preflight", check.Name+": "+check.Detail, nil)
		}
	}

	org, err := organizer.New(env.Config, env.Logger, organizer.WithObserver(env.Observer))
	if err != nil {
		return nil, err
	}
	if c.DryRun {
		return org.Plan(ctx, c.Source, c.Dest)
	}

	result, runErr := org.Organize(ctx, c.Source, c.Dest)
	if len(result.Records) > 0 {
		if err := env.Store.Save(result.Log()); err != nil {
			runErr = errors.Join(runErr, ops.Wrap(ops.ErrValidation, "organize", "save operation log", env.Store.Path(), err))
		}
	}
	if result.Found > 0 {
		env.record(ctx, history.Entry{
			RunID:     result.RunID,
			Operation: "organize",
			Source:    result.Source,
			Dest:      result.Dest,
			Moved:     len(result.Records),
			Failed:    len(result.Failures),
			Skipped:   result.Skipped,
			StartedAt: result.StartedAt,
			Duration:  result.Duration,
		}, runErr)
	}
	return result, runErr
}

// UndoCommand reverses the last organize run. DropMissing forgets records
// whose files exist at neither path.
type UndoCommand struct {
	DropMissing bool
}

func (UndoCommand) Name() string { return "undo" }

func (UndoCommand) locksLog() bool { return true }

func (c UndoCommand) run(ctx context.Context, env *Env) (any, error) {
	for _, check := range preflight.CheckUndo(env.Config) {
		if !check.Passed {
			return nil, ops.Wrap(ops.ErrValidation, "undo", "preflight", check.Name+": "+check.Detail, nil)
		}
	}
	started := time.Now()
	result, err := undo.New(env.Store, env.Logger, undo.WithDropMissing(c.DropMissing)).Undo(ctx)
	if result.RunID != "" || result.Restored > 0 || result.Failed() > 0 {
		env.record(ctx, history.Entry{
			RunID:     result.RunID,
			Operation: "undo",
			Moved:     result.Restored,
			Failed:    result.Failed(),
			Skipped:   result.Skipped,
			StartedAt: started,
			Duration:  result.Duration,
		}, err)
	}
	return result, err
}

// ScanResult bundles scanner output.
type ScanResult struct {
	Folder   string
	Findings []scanner.Finding
	Stats    scanner.Stats
}

// ScanCommand runs the suspicious-file heuristics over Folder.
type ScanCommand struct {
	Folder string
}

func (ScanCommand) Name() string { return "scan" }

func (ScanCommand) locksLog() bool { return false }

func (c ScanCommand) run(ctx context.Context, env *Env) (any, error) {
	findings, stats, err := scanner.Scan(ctx, c.Folder, scanner.ConfigFrom(env.Config))
	result := ScanResult{Folder: c.Folder, Findings: findings, Stats: stats}
	if err != nil {
		return result, err
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(env.Logger, "scanner"))
	for _, f := range findings {
		logger.Info("suspicious file",
			logging.String("path", f.Path),
			logging.String("reason", f.Reason),
			logging.String(logging.FieldEventType, string(f.Kind)),
		)
	}
	if stats.Truncated {
		logging.WarnWithContext(logger, "scan stopped at file cap", "scan_truncated",
			logging.Int("inspected", stats.Inspected),
			logging.String(logging.FieldErrorHint, "raise scan.max_files to inspect more files"),
			logging.String(logging.FieldImpact, "remaining files were not inspected"),
		)
	}
	logger.Info("scan finished",
		logging.String("folder", c.Folder),
		logging.Int("inspected", stats.Inspected),
		logging.Int("findings", stats.Findings),
	)
	return result, nil
}

// MailCommand sends Message, or schedules it when Delay is positive. A
// scheduled send returns the *mailer.Task.
type MailCommand struct {
	Message mailer.Message
	Delay   time.Duration
}

func (MailCommand) Name() string { return "mail" }

func (MailCommand) locksLog() bool { return false }

func (c MailCommand) run(ctx context.Context, env *Env) (any, error) {
	if env.Sender == nil {
		return nil, mailer.ErrNotConfigured
	}
	if strings.TrimSpace(c.Message.Subject) == "" {
		return nil, ops.Wrap(ops.ErrValidation, "mail", "validate message", "subject is required", nil)
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(env.Logger, "mailer"))
	if c.Delay <= 0 {
		return nil, env.Sender.Send(ctx, c.Message)
	}

	msg, sender := c.Message, env.Sender
	task := env.Scheduler.After(c.Delay, func(taskCtx context.Context) error {
		if err := sender.Send(taskCtx, msg); err != nil {
			logging.WarnWithContext(logger, "scheduled mail failed", "mail_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run 'tidyup mail test' to check SMTP settings"),
				logging.String(logging.FieldImpact, "report was not delivered"),
			)
			return err
		}
		return nil
	})
	logger.Info("mail scheduled",
		logging.Duration("delay", c.Delay),
		logging.String("fire_at", time.Now().Add(c.Delay).Format(time.RFC3339)),
	)
	return task, nil
}

// record appends entry to the run history when one is configured. History
// failures are logged and never fail the job.
func (env *Env) record(ctx context.Context, entry history.Entry, runErr error) {
	if env.History == nil {
		return
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if _, err := env.History.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger := logging.WithContext(ctx, logging.NewComponentLogger(env.Logger, "history"))
		logging.WarnWithContext(logger, "record run history failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database to start over"),
			logging.String(logging.FieldImpact, "this run is missing from 'tidyup log history'"),
		)
	}
}

// describe renders a one-line summary of a command for logs.
func describe(cmd Command) string {
	switch c := cmd.(type) {
	case OrganizeCommand:
		return fmt.Sprintf("%s -> %s", c.Source, c.Dest)
	case ScanCommand:
		return c.Folder
	case MailCommand:
		return c.Message.Subject
	default:
		return ""
	}
}
