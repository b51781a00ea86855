// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package verify is the self-verification harness for the sampling
// subsystem: it runs curated scenarios against fixture positions, validates
// sample-count integrity, backend usage and timing, and renders reports.
package verify

import "github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/sampling"

// Scenario is one verification case: a named configuration plus an expected
// total-time envelope. A zero MaxExpectedTimeMs disables the envelope check.
type Scenario struct {
	Name              string
	Config            sampling.Config
	MinExpectedTimeMs float64
	MaxExpectedTimeMs float64
}

func scenarioConfig(lambda float64, samples int, mode sampling.SamplingMode, reward sampling.RewardMode, debug bool) sampling.Config {
	return sampling.Config{
		Lambda:       lambda,
		Samples:      samples,
		RewardMode:   reward,
		SamplingMode: mode,
		Enabled:      true,
		DebugLogging: debug,
	}
}

// StandardScenarios covers the documented default operating points in both
// selection modes plus the exploration/exploitation lambda extremes used in
// tuning. Diagnostics are on so the report carries the event streams.
func StandardScenarios() []Scenario {
	return []Scenario{
		{
			Name:              "standard_competitive",
			Config:            scenarioConfig(0.1, 50, sampling.ModeCompetitive, sampling.RewardHybrid, true),
			MaxExpectedTimeMs: 10000,
		},
		{
			Name:              "standard_quantum_hybrid",
			Config:            scenarioConfig(0.1, 50, sampling.ModeQuantumLimit, sampling.RewardHybrid, true),
			MaxExpectedTimeMs: 10000,
		},
		{
			Name:              "low_lambda_exploration",
			Config:            scenarioConfig(0.01, 25, sampling.ModeCompetitive, sampling.RewardHybrid, true),
			MaxExpectedTimeMs: 10000,
		},
		{
			Name:              "high_lambda_exploitation",
			Config:            scenarioConfig(1.0, 25, sampling.ModeCompetitive, sampling.RewardHybrid, true),
			MaxExpectedTimeMs: 10000,
		},
	}
}

// PerformanceScenarios stresses throughput with large sample counts.
// Diagnostics are off; the per-sample event stream would dominate runtime.
func PerformanceScenarios() []Scenario {
	return []Scenario{
		{
			Name:              "performance_500_samples",
			Config:            scenarioConfig(0.1, 500, sampling.ModeCompetitive, sampling.RewardHybrid, false),
			MaxExpectedTimeMs: 60000,
		},
		{
			Name:              "performance_1000_samples",
			Config:            scenarioConfig(0.1, 1000, sampling.ModeCompetitive, sampling.RewardHybrid, false),
			MaxExpectedTimeMs: 120000,
		},
	}
}

// EdgeCaseScenarios probes the parameter boundaries: a single sample per
// move and both ends of the lambda range.
func EdgeCaseScenarios() []Scenario {
	return []Scenario{
		{
			Name:              "single_sample",
			Config:            scenarioConfig(0.1, 1, sampling.ModeCompetitive, sampling.RewardHybrid, true),
			MaxExpectedTimeMs: 5000,
		},
		{
			Name:              "minimum_lambda",
			Config:            scenarioConfig(sampling.MinLambda, 100, sampling.ModeCompetitive, sampling.RewardHybrid, true),
			MaxExpectedTimeMs: 20000,
		},
		{
			Name:              "maximum_lambda",
			Config:            scenarioConfig(sampling.MaxLambda, 100, sampling.ModeCompetitive, sampling.RewardHybrid, true),
			MaxExpectedTimeMs: 20000,
		},
	}
}

// AllScenarios is the union run by the comprehensive suite.
func AllScenarios() []Scenario {
	var all []Scenario
	all = append(all, StandardScenarios()...)
	all = append(all, PerformanceScenarios()...)
	all = append(all, EdgeCaseScenarios()...)
	return all
}
