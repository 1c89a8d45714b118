// Package logging provides a unified logging interface for the plagiarism
// detector. It abstracts the underlying logging implementation so that the
// worker pool, the ingestion layer and the HTTP front-end log the same way,
// whether the output is a colored console (CLI) or JSON lines (serve).
package logging
