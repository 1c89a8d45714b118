package cli

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/format"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

// Renderer names accepted by --renderer.
const (
	RendererAuto    = "auto"
	RendererLines   = "lines"
	RendererPlain   = "plain"
	RendererSpinner = "spinner"
	RendererTUI     = "tui"
)

// fdWriter is implemented by *os.File.
type fdWriter interface {
	Fd() uintptr
}

// IsTerminal reports whether out is attached to a terminal.
func IsTerminal(out io.Writer) bool {
	f, ok := out.(fdWriter)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ResolveRenderer turns the requested renderer name into a concrete one.
// "auto" (or "") picks lines on a terminal and plain elsewhere; noANSI
// always forces plain, since every other renderer moves the cursor.
func ResolveRenderer(name string, noANSI bool, out io.Writer) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if noANSI {
		return RendererPlain, nil
	}
	switch name {
	case "", RendererAuto:
		if IsTerminal(out) {
			return RendererLines, nil
		}
		return RendererPlain, nil
	case RendererLines, RendererPlain, RendererSpinner, RendererTUI:
		return name, nil
	default:
		return "", apperrors.NewConfigError("unknown renderer %q (want lines, plain, spinner or tui)", name)
	}
}

// NewReporter returns the terminal reporter for a resolved renderer name.
// The dashboard lives in package tui and is not handled here.
func NewReporter(name string) (orchestration.ProgressReporter, error) {
	switch name {
	case RendererLines:
		return LinesReporter{}, nil
	case RendererPlain:
		return PlainReporter{}, nil
	case RendererSpinner:
		return SpinnerReporter{}, nil
	default:
		return nil, apperrors.NewConfigError("renderer %q is not a terminal renderer", name)
	}
}

// PresentSummary prints the outcome of a finished run.
func PresentSummary(s orchestration.Summary, out io.Writer) {
	fmt.Fprintf(out, "\n--- Detection Summary ---\n")
	fmt.Fprintf(out, "Report:   %s%s%s\n", ui.ColorBold(), s.Output, ui.ColorReset())
	fmt.Fprintf(out, "Sheets:   %s%d%s (%s)\n", ui.ColorInfo(), len(s.Sheets), ui.ColorReset(), strings.Join(s.Sheets, ", "))
	fmt.Fprintf(out, "Jobs:     %s\n", format.FormatNumber(s.Plan.Tasks))
	if s.Failed > 0 {
		fmt.Fprintf(out, "Failed:   %s%d%s\n", ui.ColorError(), s.Failed, ui.ColorReset())
	}
	fmt.Fprintf(out, "Duration: %s\n", format.FormatExecutionDuration(s.Duration))
}

// HandleError prints err and returns the exit code for it. A nil error
// prints nothing and maps to success.
func HandleError(err error, out io.Writer) int {
	code := apperrors.ExitCodeFor(err)
	switch code {
	case apperrors.ExitSuccess:
		return code
	case apperrors.ExitErrorCanceled:
		fmt.Fprintf(out, "%sRun canceled.%s\n", ui.ColorError(), ui.ColorReset())
	case apperrors.ExitErrorInput:
		fmt.Fprintf(out, "%sCannot read input:%s %v\n", ui.ColorError(), ui.ColorReset(), err)
	case apperrors.ExitErrorConfig:
		fmt.Fprintf(out, "%sConfiguration error:%s %v\n", ui.ColorError(), ui.ColorReset(), err)
	default:
		fmt.Fprintf(out, "%sError:%s %v\n", ui.ColorError(), ui.ColorReset(), err)
	}
	return code
}
