// Package orchestration turns a source into comparison tasks, runs them on a
// bounded worker pool and feeds the results to the report builder. It
// decouples the computation from presentation via the progress hub and the
// ProgressReporter interface.
package orchestration
