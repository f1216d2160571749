package logging

import (
	"context"
	"log/slog"
	"strings"

	"tidyup/internal/ops"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for organize run identifiers.
	FieldRunID = "run_id"
	// FieldOperation is the standardized key for the operation (organize, undo, scan, mail).
	FieldOperation = "operation"
	// FieldEventType classifies a log line for filtering (e.g. file_moved, undo_partial).
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if op, ok := ops.OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	if id, ok := ops.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

// FormatSubject builds the "operation run" subject shown in console output.
// Run identifiers are shortened to their first eight characters.
func FormatSubject(operation, runID string) string {
	operation = strings.TrimSpace(operation)
	runID = strings.TrimSpace(runID)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case operation != "" && runID != "":
		return operation + " " + runID
	case operation != "":
		return operation
	default:
		return runID
	}
}
