package cmd

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "shift-scheduler",
		Short:        "Assign workers to hourly shift slots from a demand forecast",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (yaml or json); defaults plus SCHED_ env when empty")

	root.AddCommand(newRunCmd(opts), newImportCmd(opts))
	return root
}

// Execute runs the CLI.
func Execute() error { return newRootCmd().Execute() }
