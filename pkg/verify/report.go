// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/sampling"
)

// Result is one scenario × position verification outcome.
type Result struct {
	ScenarioName string `json:"scenario_name"`
	Position     string `json:"position"`
	SelectedMove string `json:"selected_move"`

	SamplingCompleted     bool `json:"sampling_completed"`
	SamplesMatchRequested bool `json:"samples_match_requested"`
	NeuralNetUsed         bool `json:"neural_net_used"`
	TimingReasonable      bool `json:"timing_reasonable"`

	Metrics sampling.SamplingMetrics `json:"metrics"`

	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`

	// DebugEvents holds the raw NDJSON diagnostic lines captured during
	// the run, present only for diagnostics-enabled scenarios.
	DebugEvents []string `json:"debug_events,omitempty"`
}

// IsValid reports whether every validation passed and no errors were
// recorded. Warnings do not fail a result.
func (r Result) IsValid() bool {
	return r.SamplingCompleted &&
		r.SamplesMatchRequested &&
		r.NeuralNetUsed &&
		r.TimingReasonable &&
		len(r.Errors) == 0
}

// SamplesPerSecond returns the run's throughput.
func (r Result) SamplesPerSecond() float64 {
	return r.Metrics.SamplesPerSecond
}

// DetailedReport renders the single-result plain-text block used by verbose
// output and failure triage.
func (r Result) DetailedReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario:  %s\n", r.ScenarioName)
	fmt.Fprintf(&b, "Position:  %s\n", r.Position)
	fmt.Fprintf(&b, "Selected:  %s\n", r.SelectedMove)
	fmt.Fprintf(&b, "Checks:    completed=%t samples_match=%t neural_used=%t timing=%t\n",
		r.SamplingCompleted, r.SamplesMatchRequested, r.NeuralNetUsed, r.TimingReasonable)
	fmt.Fprintf(&b, "Samples:   %d/%d (neural %d, cached %d, heuristic %d)\n",
		r.Metrics.ActualSamples, r.Metrics.RequestedSamples,
		r.Metrics.NeuralNetEvaluations, r.Metrics.CachedEvaluations, r.Metrics.HeuristicEvaluations)
	fmt.Fprintf(&b, "Timing:    %.2f ms total, %.4f ms/sample, %.1f samples/sec\n",
		r.Metrics.TotalTimeMs, r.Metrics.AvgTimePerSampleMs, r.Metrics.SamplesPerSecond)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "Warning:   %s\n", w)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "Error:     %s\n", e)
	}
	if r.IsValid() {
		b.WriteString("Verdict:   PASS\n")
	} else {
		b.WriteString("Verdict:   FAIL\n")
	}
	return b.String()
}

// Report aggregates a suite's results.
type Report struct {
	GeneratedAt string `json:"generated_at"`
	Suite       string `json:"suite"`

	TotalTests    int `json:"total_tests"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	TotalWarnings int `json:"total_warnings"`
	TotalErrors   int `json:"total_errors"`

	MinSamplesPerSecond float64 `json:"min_samples_per_second"`
	AvgSamplesPerSecond float64 `json:"avg_samples_per_second"`
	MaxSamplesPerSecond float64 `json:"max_samples_per_second"`

	Results []Result `json:"individual_results"`
}

// BuildReport computes summary statistics over a result set.
func BuildReport(suite string, results []Result) Report {
	r := Report{
		GeneratedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Suite:       suite,
		TotalTests:  len(results),
		Results:     results,
	}

	sum := 0.0
	counted := 0
	for _, res := range results {
		if res.IsValid() {
			r.Passed++
		} else {
			r.Failed++
		}
		r.TotalWarnings += len(res.Warnings)
		r.TotalErrors += len(res.Errors)
		sps := res.SamplesPerSecond()
		if sps <= 0 {
			continue
		}
		if counted == 0 || sps < r.MinSamplesPerSecond {
			r.MinSamplesPerSecond = sps
		}
		if sps > r.MaxSamplesPerSecond {
			r.MaxSamplesPerSecond = sps
		}
		sum += sps
		counted++
	}
	if counted > 0 {
		r.AvgSamplesPerSecond = sum / float64(counted)
	}
	return r
}

// IsOverallSuccess reports whether the suite ran and nothing failed.
func (r Report) IsOverallSuccess() bool {
	return r.TotalTests > 0 && r.Failed == 0
}

// Summary renders the human-readable report text.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Sampling Verification Report (%s) ===\n", r.Suite)
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt)
	fmt.Fprintf(&b, "Tests: %d  Passed: %d  Failed: %d  Warnings: %d  Errors: %d\n",
		r.TotalTests, r.Passed, r.Failed, r.TotalWarnings, r.TotalErrors)
	fmt.Fprintf(&b, "Throughput (samples/sec): min %.1f  avg %.1f  max %.1f\n",
		r.MinSamplesPerSecond, r.AvgSamplesPerSecond, r.MaxSamplesPerSecond)
	b.WriteString("\n")

	for _, res := range r.Results {
		status := "PASS"
		if !res.IsValid() {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s @ %s\n", status, res.ScenarioName, res.Position)
		fmt.Fprintf(&b, "  selected=%s samples=%d/%d time=%.2fms rate=%.1f/s\n",
			res.SelectedMove, res.Metrics.ActualSamples, res.Metrics.RequestedSamples,
			res.Metrics.TotalTimeMs, res.Metrics.SamplesPerSecond)
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "  warning: %s\n", w)
		}
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "  error: %s\n", e)
		}
	}

	if r.IsOverallSuccess() {
		b.WriteString("\nOverall: SUCCESS\n")
	} else {
		b.WriteString("\nOverall: FAILURE\n")
	}
	return b.String()
}

// Export writes the report to the output directory in the given format
// ("json", "csv" or "text") and returns the file path.
func (v *Verifier) Export(r Report, format string) (string, error) {
	if err := os.MkdirAll(v.outputDir, 0750); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", v.outputDir, err)
	}

	var (
		path string
		err  error
	)
	switch format {
	case "json":
		path = filepath.Join(v.outputDir, "verification_report.json")
		err = exportJSON(r, path)
	case "csv":
		path = filepath.Join(v.outputDir, "verification_report.csv")
		err = exportCSV(r, path)
	case "text":
		path = filepath.Join(v.outputDir, "verification_report.txt")
		err = os.WriteFile(path, []byte(r.Summary()), 0640)
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func exportJSON(r Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0640)
}

// csvHeader is the fixed column order of the CSV export.
var csvHeader = []string{
	"scenario", "position", "selected_move",
	"sampling_completed", "samples_match_requested", "neural_net_used", "timing_reasonable", "valid",
	"requested_samples", "actual_samples", "total_time_ms", "samples_per_second",
}

func exportCSV(r Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, res := range r.Results {
		row := []string{
			res.ScenarioName,
			res.Position,
			res.SelectedMove,
			strconv.FormatBool(res.SamplingCompleted),
			strconv.FormatBool(res.SamplesMatchRequested),
			strconv.FormatBool(res.NeuralNetUsed),
			strconv.FormatBool(res.TimingReasonable),
			strconv.FormatBool(res.IsValid()),
			strconv.Itoa(res.Metrics.RequestedSamples),
			strconv.Itoa(res.Metrics.ActualSamples),
			strconv.FormatFloat(res.Metrics.TotalTimeMs, 'f', 3, 64),
			strconv.FormatFloat(res.Metrics.SamplesPerSecond, 'f', 1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
