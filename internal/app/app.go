// Package app wires the configuration, the input sources, the renderers and
// the server into the plagiarism command.
package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/richardbrinkman/plagiarism/internal/cli"
	"github.com/richardbrinkman/plagiarism/internal/config"
	"github.com/richardbrinkman/plagiarism/internal/convert"
	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

// Application represents the plagiarism application instance.
type Application struct {
	Config    config.AppConfig
	Converter convert.Converter
	Out       io.Writer
	ErrWriter io.Writer

	diffOutput string
	diffWrap   int
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithConverter sets the converter used to read archive submissions and
// diff inputs.
func WithConverter(c convert.Converter) AppOption {
	return func(a *Application) { a.Converter = c }
}

// New creates a new Application writing its report to out and its
// diagnostics to errWriter.
func New(out, errWriter io.Writer, opts ...AppOption) *Application {
	app := &Application{
		Config:     config.Default(),
		Out:        out,
		ErrWriter:  errWriter,
		diffOutput: "diff.html",
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.Converter == nil {
		app.Converter = convert.NewDispatcher()
	}
	return app
}

// Run parses args, executes the selected command and returns the process
// exit code.
func (a *Application) Run(ctx context.Context, args []string) int {
	root := a.Command()
	root.SetArgs(args)
	root.SetOut(a.Out)
	root.SetErr(a.ErrWriter)

	err := root.ExecuteContext(ctx)
	return cli.HandleError(err, a.ErrWriter)
}

// Command builds the command tree. The root command runs a detection, so
// "plagiarism --input x" and "plagiarism detect --input x" are equivalent.
func (a *Application) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "plagiarism [input]",
		Short: "Detect plagiarism across submissions and exam answers",
		Long: `Computes pairwise similarity scores between student submissions or exam
answers and writes them to a spreadsheet with color-coded matrices.

The input is an archive or directory of submissions, or a tabular export
(CSV or XLSX) with one row per candidate or one row per answer.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		RunE:          a.runDetect,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("plagiarism version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.NewConfigError("%v", err)
	})
	config.RegisterGlobalFlags(root.PersistentFlags(), &a.Config)
	config.RegisterDetectFlags(root.Flags(), &a.Config)

	root.AddCommand(a.detectCommand(), a.serveCommand(), a.diffCommand(), a.versionCommand())
	return root
}

// initTheme disables colors on request, when NO_COLOR is set, or when
// out is not a terminal.
func (a *Application) initTheme() {
	ui.InitTheme(a.Config.NoColor || !cli.IsTerminal(a.Out))
}

// runContext derives the context of a command: cancelled on SIGINT or
// SIGTERM, and after timeout unless it is zero.
func runContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stopSignals
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancelTimeout()
		stopSignals()
	}
}
