// Package main implements a thin command-line front end over the CORE: load,
// validate, and (optionally) instantiate a Wasm module, reporting the result
// the way an engine integrator would want to see it from a terminal.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.InfoLevel,
}

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "wrcore",
	Short: "wrcore decodes, validates, and instantiates WebAssembly modules",
	Long: `wrcore is the command-line harness for the wrcore module-execution
core: a binary decoder, a single-pass bytecode validator that emits a
resolved branch table, and an instantiator that lays out global, memory,
and table storage ahead of execution.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
	})
}

var verbose bool
