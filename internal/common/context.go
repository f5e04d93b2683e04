package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID  contextKey = "run_id"
	ContextKeySource contextKey = "source_file"
)

// WithRunID tags the context with the batch run identifier
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithSource tags the context with the document being processed
func WithSource(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ContextKeySource, path)
}

// SourceFromContext extracts the source path from context
func SourceFromContext(ctx context.Context) string {
	if path, ok := ctx.Value(ContextKeySource).(string); ok {
		return path
	}
	return ""
}
