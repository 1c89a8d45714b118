package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error (e.g. the report could not be written).
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorInput    = 5   // Indicates a fatal ingestion error.
	ExitErrorCanceled = 130 // Indicates the process was interrupted (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// UnsupportedFormatError is returned when content sniffing matched no known
// input variant. It is fatal and raised before any job starts.
type UnsupportedFormatError struct {
	// Path is the input that could not be classified.
	Path string
	// MIME is the detected media type, if any.
	MIME string
	// Reason optionally narrows down why the content was rejected.
	Reason string
}

// Error returns a formatted message describing the unsupported input.
func (e UnsupportedFormatError) Error() string {
	msg := fmt.Sprintf("unsupported input format for %q", e.Path)
	if e.MIME != "" {
		msg += fmt.Sprintf(" (detected %s)", e.MIME)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// MissingColumnError is returned when a recognized tabular export lacks a
// column that its variant requires.
type MissingColumnError struct {
	// Column is the name of the missing column.
	Column string
	// Variant names the input variant that required it.
	Variant string
}

// Error returns a formatted message describing the missing column.
func (e MissingColumnError) Error() string {
	return fmt.Sprintf("%s export is missing required column %q", e.Variant, e.Column)
}

// InputError wraps an I/O failure while reading the run input (unreadable
// archive, unreadable directory, broken CSV). It is fatal.
type InputError struct {
	// Path is the input being read.
	Path string
	// Cause is the underlying error.
	Cause error
}

// Error returns the error message including the path.
func (e InputError) Error() string {
	return fmt.Sprintf("cannot read input %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e InputError) Unwrap() error { return e.Cause }

// ConversionError reports that a single document or answer failed to
// materialize as text. It only affects the job that needed the document.
type ConversionError struct {
	// Path is the document that failed to convert.
	Path string
	// MIME is the detected media type of the document.
	MIME string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted message describing the conversion failure.
func (e ConversionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("cannot convert file %s with mime-type %s to text", e.Path, e.MIME)
	}
	return fmt.Sprintf("cannot convert file %s with mime-type %s to text: %v", e.Path, e.MIME, e.Cause)
}

// Unwrap returns the underlying cause.
func (e ConversionError) Unwrap() error { return e.Cause }

// MetadataParseError reports a roster line that did not match the expected
// shape. Callers skip the line; it is never fatal.
type MetadataParseError struct {
	// File is the metadata file being parsed.
	File string
	// Line is the 1-based line number.
	Line int
	// Text is the offending line.
	Text string
}

// Error returns a formatted message describing the malformed line.
func (e MetadataParseError) Error() string {
	return fmt.Sprintf("%s:%d: not a roster line: %q", e.File, e.Line, e.Text)
}

// TaskError wraps a failure raised while executing a comparison job,
// including recovered panics.
type TaskError struct {
	// Task identifies the job.
	Task string
	// Cause is the underlying error.
	Cause error
}

// Error returns a formatted message naming the task.
func (e TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Task, e.Cause)
}

// Unwrap returns the underlying cause.
func (e TaskError) Unwrap() error { return e.Cause }

// IsFatalInput reports whether err is an ingestion error that must abort the
// run before computation begins.
func IsFatalInput(err error) bool {
	var unsupported UnsupportedFormatError
	var missing MissingColumnError
	var input InputError
	return errors.As(err, &unsupported) || errors.As(err, &missing) || errors.As(err, &input)
}

// ExitCodeFor maps an error returned by a run to a process exit code.
func ExitCodeFor(err error) int {
	var cfgErr ConfigError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cfgErr):
		return ExitErrorConfig
	case IsFatalInput(err):
		return ExitErrorInput
	case IsContextError(err):
		return ExitErrorCanceled
	default:
		return ExitErrorGeneric
	}
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Returns nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
