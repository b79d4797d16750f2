package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil"
)

type renderOptions struct {
	*options
	output   string
	mediaDir string
	watch    bool
}

func newRenderCmd(opts *options) *cobra.Command {
	ro := &renderOptions{options: opts}
	cmd := &cobra.Command{
		Use:   "render TEMPLATE DATA",
		Short: "Render a template with YAML, JSON or TOML data",
		Long: `Renders TEMPLATE with the data in DATA and writes the document to the
output file. DATA may be "-" to read YAML from standard input.

Example:
  stencil render invoice.odt invoice.yaml -o out.odt
  stencil render --watch --engine jinja letter.ott people.toml -o letter.odt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ro.watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return ro.watchAndRender(ctx, cmd, args[0], args[1])
			}
			return ro.render(cmd.Context(), cmd, args[0], args[1])
		},
	}
	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output file (default: TEMPLATE with an .out.odt suffix)")
	cmd.Flags().StringVar(&ro.mediaDir, "media-dir", "", "directory image paths are resolved against (default: the data file's directory)")
	cmd.Flags().BoolVarP(&ro.watch, "watch", "w", false, "render again whenever the template or data changes")
	return cmd
}

func (ro *renderOptions) outputPath(template string) string {
	if ro.output != "" {
		return ro.output
	}
	return strings.TrimSuffix(template, filepath.Ext(template)) + ".out.odt"
}

// render writes the output file only after the whole document rendered.
func (ro *renderOptions) render(ctx context.Context, cmd *cobra.Command, templatePath, dataPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := loadData(dataPath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	engineOpts := []stencil.Option{stencil.WithConfig(ro.config), stencil.WithCache(0)}
	switch {
	case ro.mediaDir != "":
		engineOpts = append(engineOpts, stencil.WithMediaDir(ro.mediaDir))
	case ro.config.MediaDir == "" && dataPath != "-":
		engineOpts = append(engineOpts, stencil.WithMediaDir(filepath.Dir(dataPath)))
	}
	engine := stencil.NewWithOptions(engineOpts...)
	defer engine.Close()

	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	tmpl, err := engine.PrepareBytes(raw)
	if err != nil {
		return err
	}
	defer tmpl.Close()

	out, err := os.CreateTemp(filepath.Dir(ro.outputPath(templatePath)), ".stencil-*.odt")
	if err != nil {
		return err
	}
	defer os.Remove(out.Name())

	if err := tmpl.RenderTo(ctx, out, data); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(out.Name(), ro.outputPath(templatePath)); err != nil {
		return err
	}

	stencil.GetLogger().WithFields(stencil.Fields{
		"template": templatePath,
		"data":     dataPath,
	}).Info("rendered %s", ro.outputPath(templatePath))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", ro.outputPath(templatePath))
	return nil
}
