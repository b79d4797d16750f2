// Command stencil renders, inspects and validates ODT templates.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil"
)

var version = "0.2.0"

// options are the persistent flags shared by every command.
type options struct {
	verbose    bool
	configPath string
	engine     string
	strict     bool

	config *stencil.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "stencil",
		Short: "Template engine for OpenDocument text files",
		Long: `stencil fills ODT templates with data.

Tags such as {{ customer.name }} or {% for item in items %} are typed into the
document with any word processor. stencil repairs tags the word processor
split apart and renders the document with pongo2 or jinja syntax.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML or TOML)")
	root.PersistentFlags().StringVar(&opts.engine, "engine", "", "template language: pongo2 or jinja")
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false, "fail on undefined variables")

	root.AddCommand(
		newRenderCmd(opts),
		newInspectCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and the logger before a command runs.
func (o *options) setup(cmd *cobra.Command) error {
	config := stencil.ConfigFromEnvironment()
	if o.configPath != "" {
		var err error
		if config, err = stencil.LoadConfigFile(o.configPath); err != nil {
			return err
		}
	}
	if o.engine != "" {
		config.Engine = o.engine
	}
	if o.strict {
		config.StrictMode = true
	}
	if o.verbose {
		config.LogLevel = "debug"
	}
	if err := config.Validate(); err != nil {
		return err
	}
	o.config = config

	level := stencil.LogWarn
	if o.verbose {
		level = stencil.LogDebug
	}
	stencil.SetLogger(stencil.NewLogger(cmd.ErrOrStderr(), level))
	return nil
}

// newEngine builds an engine that does not cache, so that every command
// reads the template afresh.
func (o *options) newEngine() *stencil.Engine {
	return stencil.NewWithOptions(stencil.WithConfig(o.config), stencil.WithCache(0))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "stencil version %s\n", version)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
