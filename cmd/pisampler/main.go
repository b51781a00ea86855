// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// pisampler is the command-line front end for the stochastic root-move
// sampling subsystem: it runs verification suites and one-off sampling
// selections against fixture positions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/diag"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/logging"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/sampling"
)

var (
	flagLogLevel string
	flagLogDir   string
	flagQuiet    bool

	appLogger  *logging.Logger
	appOptions = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "pisampler",
	Short: "Stochastic root-move sampling tools",
	Long: `pisampler drives the path-integral sampling subsystem outside the
engine: verification suites against fixture positions, and single
sampling selections with full diagnostics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		appLogger = logging.New(logging.Config{
			Level:   level,
			LogDir:  flagLogDir,
			Service: "pisampler",
			Quiet:   flagQuiet,
		})
		sampling.RegisterOptionDefaults(appOptions)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		diag.Shutdown()
		if appLogger != nil {
			appLogger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "directory for log files (empty disables file logging)")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress operational logging on stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
