// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions consume a progress stream and write it to an
//     [io.Writer]. Examples: [DisplayProgress].
//
//   - Print* and Present* functions write one-off formatted blocks.
//     Examples: [PrintExecutionConfig], [PresentSummary].
//
//   - Prepare* functions touch the filesystem before a run.
//     Examples: [PrepareOutput].

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
)

// ReportExtension is the extension of the generated report.
const ReportExtension = ".xlsx"

// PrepareOutput validates the report path and creates its directory.
// A path without an extension gets ".xlsx" appended; any other extension
// is a configuration error because the report is always a workbook.
func PrepareOutput(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", apperrors.NewConfigError("output path is empty")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case "":
		path += ReportExtension
	case ReportExtension:
	default:
		return "", apperrors.NewConfigError("output %q: the report is an %s workbook, not %s", path, ReportExtension, ext)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return path, nil
}
