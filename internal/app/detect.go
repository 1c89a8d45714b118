package app

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/richardbrinkman/plagiarism/internal/cli"
	"github.com/richardbrinkman/plagiarism/internal/config"
	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/similarity"
	"github.com/richardbrinkman/plagiarism/internal/source"
	"github.com/richardbrinkman/plagiarism/internal/tui"
)

func (a *Application) detectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [input]",
		Short: "Compare the submissions of an input and write the report",
		Example: `  plagiarism detect --input submissions.zip
  plagiarism detect -i ItemsDeliveredRawReport.csv -o toets.xlsx --renderer tui`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runDetect,
	}
	config.RegisterDetectFlags(cmd.Flags(), &a.Config)
	return cmd
}

// runDetect orchestrates a detection run: it resolves the configuration,
// opens the input, picks the renderer and executes the comparisons.
func (a *Application) runDetect(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && !cmd.Flags().Changed("input") {
		if err := cmd.Flags().Set("input", args[0]); err != nil {
			return apperrors.NewConfigError("%v", err)
		}
	}
	if err := config.Load(&a.Config, cmd.Flags()); err != nil {
		return err
	}
	if a.Config.Input == "" {
		return apperrors.NewConfigError("no input given (use --input or a positional argument)")
	}
	a.initTheme()

	renderer, err := cli.ResolveRenderer(a.Config.Renderer, a.Config.NoANSI, a.Out)
	if err != nil {
		return err
	}
	output, err := cli.PrepareOutput(a.Config.Output)
	if err != nil {
		return err
	}
	sim, err := similarity.ByName(a.Config.Algorithm)
	if err != nil {
		return apperrors.NewConfigError("%v", err)
	}

	level, _ := logging.ParseLevel(a.Config.LogLevel)
	var logger logging.Logger = logging.NewConsoleLogger(a.ErrWriter, "detect", level, a.Config.NoColor)
	if renderer == cli.RendererTUI {
		// The dashboard owns the terminal.
		logger = logging.Nop()
	}

	ctx, cancel := runContext(cmd.Context(), a.Config.Timeout)
	defer cancel()

	src, err := source.Open(ctx, a.Config.Input, source.Options{
		Converter: a.Converter,
		Columns:   a.Config.Columns,
		Logger:    logger,
		TempDir:   os.TempDir(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("cannot clean up input", logging.Err(cerr))
		}
	}()

	plan := orchestration.PlanFor(src)
	opts := orchestration.Options{
		Workers:    a.Config.Workers,
		Similarity: sim,
		Output:     output,
		Logger:     logger,
	}

	var summary orchestration.Summary
	if renderer == cli.RendererTUI {
		summary, err = tui.Run(ctx, plan, func(ctx context.Context, reporter orchestration.ProgressReporter) (orchestration.Summary, error) {
			return orchestration.ExecuteDetection(ctx, src, opts, reporter, io.Discard)
		}, Version)
	} else {
		workers := a.Config.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		cli.PrintExecutionConfig(cli.RunInfo{
			Input:     a.Config.Input,
			Kind:      src.Kind().String(),
			Algorithm: a.Config.Algorithm,
			Workers:   workers,
		}, plan, a.Out)

		reporter, rerr := cli.NewReporter(renderer)
		if rerr != nil {
			return rerr
		}
		summary, err = orchestration.ExecuteDetection(ctx, src, opts, reporter, a.Out)
	}
	if err != nil {
		return err
	}

	cli.PresentSummary(summary, a.Out)
	return nil
}
