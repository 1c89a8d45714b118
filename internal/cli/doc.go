// Package cli renders detection runs in a terminal: the progress stream
// as status lines (rewritten in place on ANSI terminals, appended
// otherwise) or as a spinner with a progress bar, plus the configuration
// banner, the final summary and error reporting with exit codes.
package cli
