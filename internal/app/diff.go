package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richardbrinkman/plagiarism/internal/config"
	"github.com/richardbrinkman/plagiarism/internal/diff"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

func (a *Application) diffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff FROM TO",
		Short: "Write a side-by-side HTML comparison of two documents",
		Long: `Converts both documents to text, with the same readers used for archive
submissions, and writes an HTML page showing them side by side with the
changed characters highlighted.`,
		Example: "  plagiarism diff alice.docx bob.pdf --output alice-bob.html",
		Args:    cobra.ExactArgs(2),
		RunE:    a.runDiff,
	}
	cmd.Flags().StringVarP(&a.diffOutput, "output", "o", a.diffOutput, "path of the generated HTML page")
	cmd.Flags().IntVar(&a.diffWrap, "wrap", diff.DefaultWrapColumn, "wrap lines at this column (negative = never)")
	return cmd
}

func (a *Application) runDiff(cmd *cobra.Command, args []string) error {
	if err := config.Load(&a.Config, cmd.Flags()); err != nil {
		return err
	}
	a.initTheme()

	ctx, cancel := runContext(cmd.Context(), 0)
	defer cancel()

	if err := diff.Files(ctx, a.Converter, args[0], args[1], a.diffOutput, diff.Options{WrapColumn: a.diffWrap}); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Diff written to %s%s%s\n", ui.ColorBold(), a.diffOutput, ui.ColorReset())
	return nil
}
