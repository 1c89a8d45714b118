// Package apperrors defines structured application error types,
// allowing for a clear distinction between error classes (configuration,
// ingestion, conversion, etc.) and for carrying the underlying cause.
//
// Error Wrapping Guidelines:
// This package follows Go's error wrapping conventions using fmt.Errorf with %w.
// All error types that carry a cause implement the Unwrap() method to support
// errors.Is() and errors.As().
//
// Fatal vs. per-job errors:
// Ingestion errors (UnsupportedFormatError, MissingColumnError, InputError)
// abort a run before any comparison starts. ConversionError and TaskError are
// caught at the worker boundary and only mark a single job as failed.
// MetadataParseError is never surfaced to the user; it is logged and skipped.
package apperrors
