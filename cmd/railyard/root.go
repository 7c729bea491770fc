package main

import (
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

type rootOptions struct {
	cfgFile string
	sets    map[string]string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "railyard",
		Short:         "Concurrent work orchestration with bounded workers and deadlines",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "path to railyard.yaml")
	root.PersistentFlags().StringToStringVar(&opts.sets, "set", nil,
		"override a config value by dot path, e.g. --set pool.workers=8")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRunCmd(opts), newDemoCmd())

	return root
}
