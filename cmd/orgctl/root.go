package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd(env *cliEnv) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "orgctl",
		Short:         "orgmap catalog import and grade preview tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.toml (default: ./config.toml, ./config, /app)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log.level from the config file")

	cmd.AddCommand(newImportCmd(env, opts))
	cmd.AddCommand(newExpandCmd(env, opts))
	return cmd
}

func execute() {
	if err := newRootCmd(defaultEnv()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}
