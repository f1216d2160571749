// Package undo reverses the moves recorded by the most recent organize run.
package undo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"tidyup/internal/fileutil"
	"tidyup/internal/logging"
	"tidyup/internal/oplog"
	"tidyup/internal/ops"
)

var (
	// ErrNoLog reports that there is nothing recorded to undo.
	ErrNoLog = fmt.Errorf("%w: no previous operation to undo", ops.ErrNotFound)
	// ErrPartialUndo reports that some records could not be restored. The
	// operation log keeps those records so a later undo can retry them.
	ErrPartialUndo = fmt.Errorf("%w: undo incomplete", ops.ErrPartial)
)

// Failure is a record that could not be restored.
type Failure struct {
	Record oplog.Record
	Err    error
}

// Result summarizes an undo pass.
type Result struct {
	RunID    string
	Restored int
	Skipped  int
	// Dropped counts records forgotten because neither path exists.
	Dropped  int
	Failures []Failure
	Duration time.Duration
}

// Failed returns the number of records that could not be restored.
func (r Result) Failed() int {
	return len(r.Failures)
}

// Missing returns the failures whose files no longer exist at either path.
// Those records can never be restored.
func (r Result) Missing() int {
	n := 0
	for _, f := range r.Failures {
		if errors.Is(f.Err, ops.ErrNotFound) {
			n++
		}
	}
	return n
}

// Engine restores files recorded in an operation log.
type Engine struct {
	store       *oplog.Store
	logger      *slog.Logger
	move        func(src, dst string) error
	dropMissing bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDropMissing makes Undo forget records whose files exist at neither
// path instead of keeping them as failures.
func WithDropMissing(drop bool) Option {
	return func(e *Engine) { e.dropMissing = drop }
}

// New builds an undo engine over store.
func New(store *oplog.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logging.NewComponentLogger(logger, "undo"),
		move:   fileutil.Move,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Undo walks the recorded moves newest first and moves each file back to its
// original path. When every record is resolved the log is cleared; otherwise
// the log is rewritten to hold only the failed records and ErrPartialUndo is
// returned alongside the result.
func (e *Engine) Undo(ctx context.Context) (Result, error) {
	started := time.Now()
	log, err := e.store.Load()
	if err != nil {
		return Result{}, ops.Wrap(ops.ErrValidation, "undo", "load operation log", e.store.Path(), err)
	}
	if log.Empty() {
		return Result{}, ErrNoLog
	}

	result := Result{RunID: log.RunID}
	ctx = ops.WithOperation(ops.WithRunID(ctx, log.RunID), "undo")
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("undo started", logging.Int("records", len(log.Moved)))

	var remaining []oplog.Record
	for i := len(log.Moved) - 1; i >= 0; i-- {
		rec := log.Moved[i]
		if err := ctx.Err(); err != nil {
			// Unprocessed records stay in the log for the next attempt.
			slices.Reverse(remaining)
			rest := append(slices.Clone(log.Moved[:i+1]), remaining...)
			result.Duration = time.Since(started)
			if saveErr := e.retain(log, rest, len(result.Failures)); saveErr != nil {
				return result, saveErr
			}
			return result, err
		}

		switch {
		case fileutil.Exists(rec.New):
			if err := e.move(rec.New, rec.Original); err != nil {
				result.Failures = append(result.Failures, Failure{Record: rec, Err: err})
				remaining = append(remaining, rec)
				logging.WarnWithContext(logger, "restore failed", "undo_failed",
					logging.String("source", rec.New),
					logging.String("dest", rec.Original),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check permissions on both folders and retry undo"),
					logging.String(logging.FieldImpact, "file stays in the organized folder"),
				)
				continue
			}
			result.Restored++
			logger.Info("restored file",
				logging.String("source", rec.New),
				logging.String("dest", rec.Original),
			)
		case fileutil.Exists(rec.Original):
			result.Skipped++
			logger.Debug("already restored", logging.String("path", rec.Original))
		case e.dropMissing:
			result.Dropped++
			logging.WarnWithContext(logger, "dropped unrecoverable record", "undo_dropped",
				logging.String("source", rec.New),
				logging.String("dest", rec.Original),
				logging.String(logging.FieldErrorHint, "the file was moved or deleted outside tidyup"),
				logging.String(logging.FieldImpact, "record removed from the operation log"),
			)
		default:
			err := fmt.Errorf("%w: %s and %s are both missing", ops.ErrNotFound, rec.New, rec.Original)
			result.Failures = append(result.Failures, Failure{Record: rec, Err: err})
			remaining = append(remaining, rec)
			logging.WarnWithContext(logger, "recorded file vanished", "undo_missing",
				logging.String("source", rec.New),
				logging.String("dest", rec.Original),
				logging.String(logging.FieldErrorHint, "run 'tidyup undo --drop-missing' to forget it"),
				logging.String(logging.FieldImpact, "record kept in the operation log"),
			)
		}
	}
	result.Duration = time.Since(started)

	if len(result.Failures) == 0 {
		if err := e.store.Clear(); err != nil {
			return result, ops.Wrap(ops.ErrValidation, "undo", "clear operation log", e.store.Path(), err)
		}
		logger.Info("undo finished",
			logging.Int("restored", result.Restored),
			logging.Int("skipped", result.Skipped),
			logging.Int("dropped", result.Dropped),
			logging.Duration("duration", result.Duration),
		)
		return result, nil
	}

	slices.Reverse(remaining)
	if err := e.retain(log, remaining, len(result.Failures)); err != nil {
		return result, err
	}
	logging.WarnWithContext(logger, "undo incomplete", "undo_partial",
		logging.Int("restored", result.Restored),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", len(result.Failures)),
		logging.String(logging.FieldErrorHint, "resolve the failures and run undo again"),
		logging.String(logging.FieldImpact, "some files remain in the organized folders"),
	)
	return result, fmt.Errorf("%w: %d of %d files could not be restored", ErrPartialUndo, len(result.Failures), len(log.Moved))
}

// retain rewrites the log so that it holds only records, in their original
// order, annotated with the failure count.
func (e *Engine) retain(log oplog.Log, records []oplog.Record, failures int) error {
	log.Moved = records
	log.UndoFailures = failures
	if err := e.store.Save(log); err != nil {
		return ops.Wrap(ops.ErrValidation, "undo", "save operation log", e.store.Path(), err)
	}
	return nil
}
