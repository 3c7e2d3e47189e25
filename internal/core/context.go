package core

import "context"

type contextKey string

const (
	ctxKeyRunID contextKey = "run_id"
	ctxKeyFile  contextKey = "source_file"
)

// ContextWithRunID adds the pipeline run ID to context for logging.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}

// ContextWithFile adds the source file being processed to context for logging.
func ContextWithFile(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, ctxKeyFile, file)
}

// GetRunIDFromContext extracts the run ID from context.
func GetRunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID).(string); ok {
		return v
	}
	return ""
}

// GetFileFromContext extracts the source file from context.
func GetFileFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyFile).(string); ok {
		return v
	}
	return ""
}
