// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/chess"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/diag"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/logging"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/sampling"
)

const (
	// sampleCountTolerance is the accepted relative sample-count deviation.
	sampleCountTolerance = 0.05

	// minReasonablePerSampleMs and maxReasonablePerSampleMs bound a
	// plausible average per-sample latency. Below the floor the run is
	// flagged as suspiciously fast; above the ceiling the timing
	// validation fails.
	minReasonablePerSampleMs = 0.001
	maxReasonablePerSampleMs = 1000.0
)

// Verifier runs verification scenarios against an evaluation backend.
//
// Each scenario run builds its own controller, monitor and diagnostic
// logger, so suites can run scenarios in parallel against one shared
// provider.
type Verifier struct {
	provider    sampling.EvaluationProvider
	log         *logging.Logger
	outputDir   string
	verbose     bool
	parallelism int
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithOutputDir sets where Export writes report files.
func WithOutputDir(dir string) VerifierOption {
	return func(v *Verifier) { v.outputDir = dir }
}

// WithVerbose mirrors diagnostic events to stderr during runs.
func WithVerbose(verbose bool) VerifierOption {
	return func(v *Verifier) { v.verbose = verbose }
}

// WithParallelism bounds concurrent scenario runs. Values below one mean
// sequential execution.
func WithParallelism(n int) VerifierOption {
	return func(v *Verifier) { v.parallelism = n }
}

// WithVerifierLogger sets the operational logger.
func WithVerifierLogger(log *logging.Logger) VerifierOption {
	return func(v *Verifier) { v.log = log }
}

// NewVerifier builds a verifier around a provider. A nil or unavailable
// provider verifies pure-heuristic operation; the source-consistency check
// then expects heuristic evaluations instead of neural ones.
func NewVerifier(provider sampling.EvaluationProvider, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		provider:    provider,
		outputDir:   "verification_results",
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.log == nil {
		v.log = logging.Default()
	}
	return v
}

// VerifySampling runs one scenario against one position and validates the
// outcome.
func (v *Verifier) VerifySampling(scenario Scenario, pos chess.Position) Result {
	result := Result{
		ScenarioName: scenario.Name,
		Position:     pos.ID(),
		Warnings:     []string{},
		Errors:       []string{},
	}

	// Per-run diagnostic logger with an in-memory sink so the event stream
	// lands in the report instead of a shared file.
	d := diag.New()
	var events bytes.Buffer
	if scenario.Config.DebugLogging {
		d.SetExtraSink(&events)
	}

	controller := sampling.NewController(scenario.Config, v.provider,
		sampling.WithDiagnostics(d),
		sampling.WithLogger(v.log),
	)
	// After construction: SetConfig routes events to stderr whenever debug
	// logging is on, but during verification runs only --verbose does.
	d.SetOutputToStderr(v.verbose)

	move, ok := controller.SelectMove(pos)
	metrics := controller.GetLastSamplingMetrics()
	result.SamplingCompleted = ok
	result.Metrics = metrics
	if ok {
		result.SelectedMove = move.UCI()
	} else {
		result.Errors = append(result.Errors, "sampling did not produce a move")
	}

	v.validateSampleCounts(&result, metrics)
	v.validateNeuralUsage(&result, metrics)
	v.validateTiming(&result, metrics, scenario)

	if scenario.Config.DebugLogging {
		for _, line := range strings.Split(events.String(), "\n") {
			if line != "" {
				result.DebugEvents = append(result.DebugEvents, line)
			}
		}
	}

	v.log.Debug("scenario verified",
		"scenario", scenario.Name,
		"position", pos.ID(),
		"valid", result.IsValid(),
	)
	return result
}

// validateSampleCounts checks the actual sample count against the request
// within the documented tolerance.
func (v *Verifier) validateSampleCounts(r *Result, m sampling.SamplingMetrics) {
	if m.ActualSamples == 0 {
		r.SamplesMatchRequested = false
		r.Errors = append(r.Errors, "no samples were evaluated")
		return
	}

	allowed := float64(m.RequestedSamples) * sampleCountTolerance
	if allowed < 1 {
		allowed = 1
	}
	diff := m.ActualSamples - m.RequestedSamples
	if diff < 0 {
		diff = -diff
	}
	r.SamplesMatchRequested = float64(diff) <= allowed
	if !r.SamplesMatchRequested {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"sample count mismatch: requested %d, got %d", m.RequestedSamples, m.ActualSamples))
	}
}

// validateNeuralUsage checks that the evaluation source is consistent with
// backend availability: an available backend must contribute neural or
// cached evaluations; an unavailable one must fall back to the heuristic.
func (v *Verifier) validateNeuralUsage(r *Result, m sampling.SamplingMetrics) {
	neural := m.NeuralNetEvaluations + m.CachedEvaluations
	available := v.provider != nil && v.provider.IsAvailable()
	if available {
		r.NeuralNetUsed = neural > 0
		if !r.NeuralNetUsed {
			r.Warnings = append(r.Warnings,
				"neural backend available but no neural evaluations recorded")
		}
	} else {
		r.NeuralNetUsed = m.HeuristicEvaluations > 0
	}
}

// validateTiming checks the average per-sample latency and the scenario's
// total-time envelope; the run fails the check when the average exceeds the
// ceiling or the total falls outside the envelope. A sub-floor average is
// flagged but not failed: an in-memory backend legitimately evaluates faster
// than the floor.
func (v *Verifier) validateTiming(r *Result, m sampling.SamplingMetrics, scenario Scenario) {
	if m.ActualSamples == 0 {
		r.TimingReasonable = false
		return
	}

	r.TimingReasonable = m.AvgTimePerSampleMs <= maxReasonablePerSampleMs
	if !r.TimingReasonable {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"average %.3f ms per sample exceeds %.0f ms", m.AvgTimePerSampleMs, maxReasonablePerSampleMs))
	}
	if m.AvgTimePerSampleMs < minReasonablePerSampleMs {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"extremely fast sampling detected: %.6f ms per sample", m.AvgTimePerSampleMs))
	}

	if scenario.MaxExpectedTimeMs > 0 && m.TotalTimeMs > scenario.MaxExpectedTimeMs {
		r.TimingReasonable = false
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"total time %.1f ms above scenario envelope %.1f ms", m.TotalTimeMs, scenario.MaxExpectedTimeMs))
	}
	if scenario.MinExpectedTimeMs > 0 && m.TotalTimeMs < scenario.MinExpectedTimeMs {
		r.TimingReasonable = false
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"total time %.1f ms below scenario envelope %.1f ms", m.TotalTimeMs, scenario.MinExpectedTimeMs))
	}
}

// runSuite executes every scenario × position pair, bounded by the
// configured parallelism.
func (v *Verifier) runSuite(suite string, scenarios []Scenario, positions []chess.Position) Report {
	type task struct {
		scenario Scenario
		pos      chess.Position
	}
	var tasks []task
	for _, s := range scenarios {
		for _, p := range positions {
			tasks = append(tasks, task{scenario: s, pos: p})
		}
	}

	results := make([]Result, len(tasks))
	var g errgroup.Group
	limit := v.parallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			res := v.VerifySampling(t.scenario, t.pos)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are carried in the results.
	g.Wait()

	return BuildReport(suite, results)
}

// RunStandardTestSuite runs the standard scenarios over all positions.
func (v *Verifier) RunStandardTestSuite(positions []chess.Position) Report {
	return v.runSuite("standard", StandardScenarios(), positions)
}

// RunPerformanceTestSuite runs the throughput scenarios over at most five
// positions to keep runtime bounded.
func (v *Verifier) RunPerformanceTestSuite(positions []chess.Position) Report {
	if len(positions) > 5 {
		positions = positions[:5]
	}
	return v.runSuite("performance", PerformanceScenarios(), positions)
}

// RunEdgeCaseTestSuite runs the boundary scenarios over at most three
// positions.
func (v *Verifier) RunEdgeCaseTestSuite(positions []chess.Position) Report {
	if len(positions) > 3 {
		positions = positions[:3]
	}
	return v.runSuite("edge", EdgeCaseScenarios(), positions)
}

// RunComprehensiveTest runs the union of all scenario sets over all
// positions.
func (v *Verifier) RunComprehensiveTest(positions []chess.Position) Report {
	return v.runSuite("comprehensive", AllScenarios(), positions)
}
