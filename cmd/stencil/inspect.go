package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInspectCmd(opts *options) *cobra.Command {
	var (
		part string
		diff bool
	)
	cmd := &cobra.Command{
		Use:   "inspect TEMPLATE",
		Short: "Show the tags and template source of a template",
		Long: `Lists the reconstructed tags of every part. With --part the template
source of that part is printed instead; --diff shows what changed between the
stored XML and the template source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if diff && part == "" {
				part = "content.xml"
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}
			engine := opts.newEngine()
			defer engine.Close()
			tmpl, err := engine.PrepareBytes(raw)
			if err != nil {
				return err
			}
			defer tmpl.Close()

			out := cmd.OutOrStdout()
			switch {
			case diff:
				d, err := tmpl.InspectDiff(part)
				if err != nil {
					return err
				}
				fmt.Fprint(out, d)
			case part != "":
				source, err := tmpl.Source(part)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, source)
			default:
				tags := tmpl.Tags()
				for _, name := range tmpl.Parts() {
					fmt.Fprintf(out, "%s (%d tags)\n", name, len(tags[name]))
					for _, tag := range tags[name] {
						fmt.Fprintf(out, "  %s\n", tag)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&part, "part", "", "print the template source of this part, e.g. styles.xml")
	cmd.Flags().BoolVar(&diff, "diff", false, "diff the stored part against its template source")
	return cmd
}
