// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/chess"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/verify"
)

var (
	flagSuite       string
	flagFormat      string
	flagOutputDir   string
	flagPositions   string
	flagParallelism int
	flagVerbose     bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run a sampling verification suite",
	Long: `verify runs one of the built-in scenario suites against fixture
positions using an in-memory evaluation backend and writes a report.

Suites:
  standard       default operating points in both selection modes
  performance    large sample counts for throughput measurement
  edge           parameter boundaries (single sample, lambda extremes)
  comprehensive  all of the above`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&flagSuite, "suite", "standard", "suite to run (standard, performance, edge, comprehensive)")
	verifyCmd.Flags().StringVar(&flagFormat, "format", "text", "report format (text, json, csv)")
	verifyCmd.Flags().StringVar(&flagOutputDir, "output-dir", "verification_results", "directory for report files")
	verifyCmd.Flags().StringVar(&flagPositions, "positions", "", "YAML file with fixture positions (empty uses the built-in set)")
	verifyCmd.Flags().IntVar(&flagParallelism, "parallelism", 1, "concurrent scenario runs")
	verifyCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "mirror diagnostic events to stderr")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	var (
		positions []chess.Position
		err       error
	)
	if flagPositions != "" {
		positions, err = verify.LoadPositions(flagPositions)
		if err != nil {
			return err
		}
	} else {
		positions = verify.DefaultTestPositions()
	}

	provider := verify.SeededProvider(positions)
	v := verify.NewVerifier(provider,
		verify.WithOutputDir(flagOutputDir),
		verify.WithParallelism(flagParallelism),
		verify.WithVerbose(flagVerbose),
		verify.WithVerifierLogger(appLogger),
	)

	appLogger.Info("verification started",
		"suite", flagSuite, "positions", len(positions), "parallelism", flagParallelism)

	var report verify.Report
	switch flagSuite {
	case "standard":
		report = v.RunStandardTestSuite(positions)
	case "performance":
		report = v.RunPerformanceTestSuite(positions)
	case "edge":
		report = v.RunEdgeCaseTestSuite(positions)
	case "comprehensive":
		report = v.RunComprehensiveTest(positions)
	default:
		return fmt.Errorf("unknown suite %q", flagSuite)
	}

	path, err := v.Export(report, flagFormat)
	if err != nil {
		return err
	}

	if flagVerbose {
		for _, res := range report.Results {
			fmt.Fprintln(cmd.OutOrStdout(), res.DetailedReport())
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Summary())
	fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", path)

	if !report.IsOverallSuccess() {
		return fmt.Errorf("%d of %d verification tests failed", report.Failed, report.TotalTests)
	}
	return nil
}
