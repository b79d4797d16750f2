package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil"
)

func newValidateCmd(opts *options) *cobra.Command {
	var refs bool
	cmd := &cobra.Command{
		Use:   "validate TEMPLATE...",
		Short: "Check templates for broken tags and blocks",
		Long: `Reports unterminated tags, unbalanced block statements, blocks nested
too deeply and tags the template engine cannot compile. Every template is
checked; the exit status is non-zero when any of them has a problem. --refs
lists the data each template refers to.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := opts.newEngine()
			defer engine.Close()

			failed := stencil.NewMultiError()
			for _, path := range args {
				err := validateFile(cmd.OutOrStdout(), engine, path, refs)
				failed.Add(stencil.WithContext(err, "validate", map[string]interface{}{"template": path}))
			}
			return failed.Err()
		},
	}
	cmd.Flags().BoolVar(&refs, "refs", false, "list variables, functions and filters used")
	return cmd
}

// validateFile prints the issues of one template and returns them as a
// *stencil.ValidationError.
func validateFile(out io.Writer, engine *stencil.Engine, path string, refs bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	if refs {
		result, err := stencil.ExtractReferences(stencil.ExtractReferencesInput{ODTBytes: raw})
		if err != nil {
			return err
		}
		for _, ref := range result.References {
			if ref.Kind == stencil.TokenKindControl {
				continue
			}
			fmt.Fprintf(out, "%-8s %-24s %s:%d:%d\n", ref.Kind, ref.Expression,
				ref.Location.Part, ref.Location.Line, ref.Location.Column)
		}
	}

	issues, err := engine.ValidateTemplate(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Fprintf(out, "%s: %s\n", path, issue)
	}
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s: ok\n", path)
	}
	return stencil.NewValidationError(issues)
}
