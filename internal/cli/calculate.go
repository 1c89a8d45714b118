package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/richardbrinkman/plagiarism/internal/format"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

// RunInfo describes a detection run for PrintExecutionConfig.
type RunInfo struct {
	Input     string
	Kind      string
	Algorithm string
	Workers   int
}

// PrintExecutionConfig displays the configuration of the run that is about
// to start: the input and its variant, the similarity algorithm, the
// worker count and the shape of the work.
func PrintExecutionConfig(info RunInfo, plan orchestration.Plan, out io.Writer) {
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Comparing %s%s%s (%s input) with the %s%s%s algorithm.\n",
		ui.ColorBold(), info.Input, ui.ColorReset(), info.Kind,
		ui.ColorInfo(), info.Algorithm, ui.ColorReset())
	fmt.Fprintf(out, "Environment: %s%d%s workers, %s%d%s logical processors, Go %s.\n",
		ui.ColorInfo(), info.Workers, ui.ColorReset(),
		ui.ColorInfo(), runtime.NumCPU(), ui.ColorReset(), runtime.Version())
	PrintExecutionMode(plan, out)
}

// PrintExecutionMode displays the decomposition of the run.
func PrintExecutionMode(plan orchestration.Plan, out io.Writer) {
	unit := "units"
	if len(plan.Units) == 1 {
		unit = "unit"
	}
	fmt.Fprintf(out, "Execution mode: %s, %d %s, %s jobs.\n",
		plan.Mode, len(plan.Units), unit, format.FormatNumber(plan.Tasks))
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}
