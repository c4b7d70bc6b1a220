// Package logger provides structured logging with automatic PII redaction.
package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// These keys are used to store values in context.Context that will be
// automatically extracted and added to log entries.
const (
	// ContextKeyRunID identifies the benchmark run.
	ContextKeyRunID contextKey = "run_id"

	// ContextKeyItemID identifies the run item being processed.
	ContextKeyItemID contextKey = "item_id"

	// ContextKeyVendor identifies the vendor under test (e.g., "elevenlabs").
	ContextKeyVendor contextKey = "vendor"

	// ContextKeyService identifies the service type ("tts", "stt", "e2e").
	ContextKeyService contextKey = "service"

	// ContextKeyModel identifies the specific model being used.
	ContextKeyModel contextKey = "model"

	// ContextKeyRequestID identifies the individual request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

// allContextKeys lists all context keys that should be extracted for logging.
// This is used by the handler to iterate over all possible context values.
var allContextKeys = []contextKey{
	ContextKeyRunID,
	ContextKeyItemID,
	ContextKeyVendor,
	ContextKeyService,
	ContextKeyModel,
	ContextKeyRequestID,
	ContextKeyEnvironment,
}

// WithRunID returns a new context with the run ID set.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// WithItemID returns a new context with the run item ID set.
func WithItemID(ctx context.Context, itemID string) context.Context {
	return context.WithValue(ctx, ContextKeyItemID, itemID)
}

// WithVendor returns a new context with the vendor name set.
func WithVendor(ctx context.Context, vendor string) context.Context {
	return context.WithValue(ctx, ContextKeyVendor, vendor)
}

// WithService returns a new context with the service type set.
func WithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ContextKeyService, service)
}

// WithModel returns a new context with the model name set.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ContextKeyModel, model)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithEnvironment returns a new context with the environment set.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

// WithLoggingContext returns a new context with multiple logging fields set at once.
// This is a convenience function for setting multiple fields in one call.
// Only non-empty values are set.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.RunID != "" {
		ctx = WithRunID(ctx, fields.RunID)
	}
	if fields.ItemID != "" {
		ctx = WithItemID(ctx, fields.ItemID)
	}
	if fields.Vendor != "" {
		ctx = WithVendor(ctx, fields.Vendor)
	}
	if fields.Service != "" {
		ctx = WithService(ctx, fields.Service)
	}
	if fields.Model != "" {
		ctx = WithModel(ctx, fields.Model)
	}
	if fields.RequestID != "" {
		ctx = WithRequestID(ctx, fields.RequestID)
	}
	if fields.Environment != "" {
		ctx = WithEnvironment(ctx, fields.Environment)
	}
	return ctx
}

// LoggingFields holds all standard logging context fields.
// This struct is used with WithLoggingContext for bulk field setting.
type LoggingFields struct {
	RunID       string
	ItemID      string
	Vendor      string
	Service     string
	Model       string
	RequestID   string
	Environment string
}

// ExtractLoggingFields extracts all logging fields from a context.
// Returns a LoggingFields struct with all values found in the context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	fields := LoggingFields{}
	if v := ctx.Value(ContextKeyRunID); v != nil {
		fields.RunID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyItemID); v != nil {
		fields.ItemID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyVendor); v != nil {
		fields.Vendor, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyService); v != nil {
		fields.Service, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyModel); v != nil {
		fields.Model, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyRequestID); v != nil {
		fields.RequestID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyEnvironment); v != nil {
		fields.Environment, _ = v.(string)
	}
	return fields
}
