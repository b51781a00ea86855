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
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/diag"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/sampling"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/verify"
)

var (
	flagSampleLambda    float64
	flagSampleCount     int
	flagSampleMode      string
	flagSampleReward    string
	flagSampleDebug     bool
	flagSampleMetrics   string
	flagSamplePositions string
	flagSampleIndex     int
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Run one sampling selection on a fixture position",
	Long: `sample runs a single stochastic move selection against a fixture
position, using an in-memory evaluation backend, and prints the selected
move and the session's performance metrics.`,
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().Float64Var(&flagSampleLambda, "lambda", sampling.DefaultLambda, "softmax temperature multiplier")
	sampleCmd.Flags().IntVar(&flagSampleCount, "samples", sampling.DefaultSamples, "samples per legal move")
	sampleCmd.Flags().StringVar(&flagSampleMode, "mode", "competitive", "selection mode (competitive, quantum_limit)")
	sampleCmd.Flags().StringVar(&flagSampleReward, "reward-mode", "hybrid", "quantum-limit reward (policy, cp_score, hybrid)")
	sampleCmd.Flags().BoolVar(&flagSampleDebug, "debug", false, "emit diagnostic events to stderr")
	sampleCmd.Flags().StringVar(&flagSampleMetrics, "metrics-file", "", "append metrics and diagnostics to this file")
	sampleCmd.Flags().StringVar(&flagSamplePositions, "positions", "", "YAML file with fixture positions (empty uses the built-in set)")
	sampleCmd.Flags().IntVar(&flagSampleIndex, "position-index", 0, "which fixture position to sample")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	appOptions.Set(sampling.OptionLambda, flagSampleLambda)
	appOptions.Set(sampling.OptionSamples, flagSampleCount)
	appOptions.Set(sampling.OptionSamplingMode, flagSampleMode)
	appOptions.Set(sampling.OptionRewardMode, flagSampleReward)
	appOptions.Set(sampling.OptionDebugLogging, flagSampleDebug)
	appOptions.Set(sampling.OptionMetricsFile, flagSampleMetrics)

	cfg := sampling.ConfigFromOptions(appOptions)
	if !cfg.Enabled || !cfg.IsValid() {
		return fmt.Errorf("invalid sampling parameters: lambda=%g samples=%d", flagSampleLambda, flagSampleCount)
	}

	var (
		positions []chess.Position
		err       error
	)
	if flagSamplePositions != "" {
		positions, err = verify.LoadPositions(flagSamplePositions)
		if err != nil {
			return err
		}
	} else {
		positions = verify.DefaultTestPositions()
	}
	if flagSampleIndex < 0 || flagSampleIndex >= len(positions) {
		return fmt.Errorf("position index %d out of range [0, %d)", flagSampleIndex, len(positions))
	}
	pos := positions[flagSampleIndex]

	provider := verify.SeededProvider(positions)
	controller := sampling.NewController(cfg, provider,
		sampling.WithDiagnostics(diag.Default()),
		sampling.WithLogger(appLogger),
	)

	move, ok := controller.SelectMove(pos)
	if !ok {
		return fmt.Errorf("sampling produced no move for position %q", pos.ID())
	}

	m := controller.GetLastSamplingMetrics()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "position: %s\n", pos.ID())
	fmt.Fprintf(out, "selected: %s\n", move.UCI())
	fmt.Fprintf(out, "samples:  %d/%d (neural %d, cached %d, heuristic %d)\n",
		m.ActualSamples, m.RequestedSamples,
		m.NeuralNetEvaluations, m.CachedEvaluations, m.HeuristicEvaluations)
	fmt.Fprintf(out, "time:     %.2f ms total, %.4f ms/sample, %.1f samples/sec\n",
		m.TotalTimeMs, m.AvgTimePerSampleMs, m.SamplesPerSecond)

	if flagSampleMetrics != "" {
		if err := controller.ExportPerformanceMetrics(); err != nil {
			appLogger.Warn("metrics export failed", "error", err)
		}
	}
	return nil
}
