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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/logging"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/sampling"
)

func testVerifier(t *testing.T) *Verifier {
	t.Helper()
	positions := DefaultTestPositions()
	return NewVerifier(SeededProvider(positions),
		vOptOutputDir(t),
		withQuietLogger(),
	)
}

func vOptOutputDir(t *testing.T) VerifierOption {
	return WithOutputDir(filepath.Join(t.TempDir(), "reports"))
}

func withQuietLogger() VerifierOption {
	return WithVerifierLogger(logging.New(logging.Config{Level: logging.LevelError, Quiet: true}))
}

func TestVerifySamplingValidRun(t *testing.T) {
	v := testVerifier(t)
	pos := DefaultTestPositions()[0]
	scenario := StandardScenarios()[0]

	result := v.VerifySampling(scenario, pos)
	if !result.SamplingCompleted {
		t.Fatalf("sampling did not complete: %v", result.Errors)
	}
	if !result.IsValid() {
		t.Errorf("result invalid: errors %v warnings %v", result.Errors, result.Warnings)
	}
	if result.SelectedMove == "" {
		t.Error("no selected move recorded")
	}

	want := scenario.Config.Samples * len(pos.LegalMoves())
	if result.Metrics.RequestedSamples != want {
		t.Errorf("RequestedSamples = %d, want %d", result.Metrics.RequestedSamples, want)
	}
	if !result.NeuralNetUsed {
		t.Error("seeded backend was not used")
	}
	if len(result.DebugEvents) == 0 {
		t.Error("diagnostics-enabled scenario captured no events")
	}
}

func TestVerifySamplingDiagnosticsCapture(t *testing.T) {
	v := testVerifier(t)
	result := v.VerifySampling(StandardScenarios()[0], DefaultTestPositions()[0])

	starts := 0
	for _, line := range result.DebugEvents {
		var e struct {
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("debug event %q is not valid JSON: %v", line, err)
		}
		if e.EventType == "sampling_start" {
			starts++
		}
	}
	if starts != 1 {
		t.Errorf("got %d sampling_start events, want 1", starts)
	}
}

func TestVerifySamplingNoDebugEventsWhenDisabled(t *testing.T) {
	v := testVerifier(t)
	scenario := PerformanceScenarios()[0] // diagnostics off
	scenario.Config.Samples = 5           // keep the test fast

	result := v.VerifySampling(scenario, DefaultTestPositions()[0])
	if len(result.DebugEvents) != 0 {
		t.Errorf("diagnostics-disabled scenario captured %d events", len(result.DebugEvents))
	}
}

func TestVerifySamplingHeuristicOnly(t *testing.T) {
	provider := sampling.NewStaticProvider()
	provider.SetAvailable(false)
	v := NewVerifier(provider, vOptOutputDir(t), withQuietLogger())

	result := v.VerifySampling(StandardScenarios()[0], DefaultTestPositions()[0])
	if !result.SamplingCompleted {
		t.Fatalf("heuristic-only sampling did not complete: %v", result.Errors)
	}
	if !result.NeuralNetUsed {
		t.Error("unavailable backend with heuristic samples should pass the source check")
	}
	if !result.IsValid() {
		t.Errorf("heuristic-only result invalid: errors %v warnings %v", result.Errors, result.Warnings)
	}
	if result.Metrics.HeuristicEvaluations != result.Metrics.ActualSamples {
		t.Errorf("heuristic evaluations %d, want all %d samples",
			result.Metrics.HeuristicEvaluations, result.Metrics.ActualSamples)
	}
}

func TestValidateSampleCountsTolerance(t *testing.T) {
	v := testVerifier(t)

	tests := []struct {
		name      string
		requested int
		actual    int
		want      bool
	}{
		{"exact", 100, 100, true},
		{"within 5 percent", 100, 96, true},
		{"at 5 percent", 100, 95, true},
		{"beyond 5 percent", 100, 94, false},
		{"over-delivery within", 100, 105, true},
		{"over-delivery beyond", 100, 106, false},
		{"small request off by one", 3, 2, true},
		{"small request off by two", 3, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Result{}
			v.validateSampleCounts(&r, sampling.SamplingMetrics{
				RequestedSamples: tt.requested,
				ActualSamples:    tt.actual,
			})
			if r.SamplesMatchRequested != tt.want {
				t.Errorf("SamplesMatchRequested = %v, want %v", r.SamplesMatchRequested, tt.want)
			}
		})
	}
}

func TestValidateSampleCountsZeroActual(t *testing.T) {
	v := testVerifier(t)
	r := Result{}
	v.validateSampleCounts(&r, sampling.SamplingMetrics{RequestedSamples: 100})

	if r.SamplesMatchRequested {
		t.Error("zero actual samples passed the count check")
	}
	if len(r.Errors) == 0 {
		t.Error("zero actual samples recorded no error")
	}
}

func TestValidateTiming(t *testing.T) {
	v := testVerifier(t)

	r := Result{}
	v.validateTiming(&r, sampling.SamplingMetrics{
		ActualSamples:      10,
		AvgTimePerSampleMs: 5.0,
	}, Scenario{})
	if !r.TimingReasonable {
		t.Error("5 ms/sample flagged as unreasonable")
	}

	r = Result{}
	v.validateTiming(&r, sampling.SamplingMetrics{
		ActualSamples:      10,
		AvgTimePerSampleMs: 1500.0,
	}, Scenario{})
	if r.TimingReasonable {
		t.Error("1500 ms/sample passed the timing check")
	}

	r = Result{}
	v.validateTiming(&r, sampling.SamplingMetrics{
		ActualSamples:      10,
		AvgTimePerSampleMs: 0.0001,
	}, Scenario{})
	if !r.TimingReasonable {
		t.Error("sub-floor average should warn, not fail")
	}
	if len(r.Warnings) == 0 {
		t.Error("sub-floor average produced no warning")
	}

	r = Result{}
	v.validateTiming(&r, sampling.SamplingMetrics{
		ActualSamples:      10,
		AvgTimePerSampleMs: 5.0,
		TotalTimeMs:        5000,
	}, Scenario{MaxExpectedTimeMs: 100})
	if r.TimingReasonable {
		t.Error("total time above the scenario envelope passed the timing check")
	}

	r = Result{}
	v.validateTiming(&r, sampling.SamplingMetrics{
		ActualSamples:      10,
		AvgTimePerSampleMs: 5.0,
		TotalTimeMs:        50,
	}, Scenario{MinExpectedTimeMs: 100, MaxExpectedTimeMs: 1000})
	if r.TimingReasonable {
		t.Error("total time below the scenario envelope passed the timing check")
	}
}

func TestBuildReportCounts(t *testing.T) {
	results := []Result{
		{
			SamplingCompleted: true, SamplesMatchRequested: true,
			NeuralNetUsed: true, TimingReasonable: true,
			Metrics: sampling.SamplingMetrics{SamplesPerSecond: 100},
		},
		{
			SamplingCompleted: true, SamplesMatchRequested: true,
			NeuralNetUsed: true, TimingReasonable: true,
			Metrics: sampling.SamplingMetrics{SamplesPerSecond: 300},
		},
		{
			SamplingCompleted: false,
			Warnings:          []string{"sample count mismatch: requested 100, got 80"},
			Errors:            []string{"sampling did not produce a move"},
		},
	}

	r := BuildReport("unit", results)
	if r.TotalTests != 3 || r.Passed != 2 || r.Failed != 1 {
		t.Errorf("counts total %d passed %d failed %d, want 3/2/1", r.TotalTests, r.Passed, r.Failed)
	}
	if r.TotalWarnings != 1 || r.TotalErrors != 1 {
		t.Errorf("warning/error totals %d/%d, want 1/1", r.TotalWarnings, r.TotalErrors)
	}
	if r.MinSamplesPerSecond != 100 || r.MaxSamplesPerSecond != 300 || r.AvgSamplesPerSecond != 200 {
		t.Errorf("throughput min %v avg %v max %v, want 100/200/300",
			r.MinSamplesPerSecond, r.AvgSamplesPerSecond, r.MaxSamplesPerSecond)
	}
	if r.IsOverallSuccess() {
		t.Error("report with a failure marked successful")
	}
}

func TestStandardSuiteJSONRoundTrip(t *testing.T) {
	positions := DefaultTestPositions()[:2]
	v := NewVerifier(SeededProvider(DefaultTestPositions()),
		vOptOutputDir(t),
		withQuietLogger(),
	)

	report := v.RunStandardTestSuite(positions)
	wantTests := len(StandardScenarios()) * len(positions)
	if report.TotalTests != wantTests {
		t.Fatalf("TotalTests = %d, want %d", report.TotalTests, wantTests)
	}
	if !report.IsOverallSuccess() {
		t.Fatalf("standard suite failed: %s", report.Summary())
	}

	path, err := v.Export(report, "json")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	// Every standard scenario runs with diagnostics on, so the decoded
	// report must carry exactly one sampling_start per result.
	starts := 0
	for _, res := range decoded.Results {
		for _, line := range res.DebugEvents {
			if strings.Contains(line, `"event_type":"sampling_start"`) {
				starts++
			}
		}
	}
	if starts != wantTests {
		t.Errorf("got %d sampling_start events across the report, want %d", starts, wantTests)
	}
}

func TestCSVExport(t *testing.T) {
	positions := DefaultTestPositions()[:1]
	v := NewVerifier(SeededProvider(DefaultTestPositions()),
		vOptOutputDir(t),
		withQuietLogger(),
	)
	report := v.RunEdgeCaseTestSuite(positions)

	path, err := v.Export(report, "csv")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != report.TotalTests+1 {
		t.Errorf("got %d csv rows, want %d results plus header", len(rows), report.TotalTests)
	}
	if len(rows[0]) != len(csvHeader) || rows[0][0] != "scenario" {
		t.Errorf("unexpected header row %v", rows[0])
	}
}

func TestTextExport(t *testing.T) {
	v := testVerifier(t)
	report := BuildReport("unit", []Result{{
		ScenarioName: "case", Position: "pos",
		SamplingCompleted: true, SamplesMatchRequested: true,
		NeuralNetUsed: true, TimingReasonable: true,
	}})

	path, err := v.Export(report, "text")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "Overall: SUCCESS") || !strings.Contains(text, "[PASS] case") {
		t.Errorf("unexpected text report:\n%s", text)
	}
}

func TestDetailedReport(t *testing.T) {
	r := Result{
		ScenarioName:      "standard_competitive",
		Position:          "pos",
		SelectedMove:      "e2e4",
		SamplingCompleted: true, SamplesMatchRequested: true,
		NeuralNetUsed: true, TimingReasonable: true,
		Metrics:  sampling.SamplingMetrics{RequestedSamples: 300, ActualSamples: 300},
		Warnings: []string{"extremely fast sampling detected: 0.000100 ms per sample"},
	}

	text := r.DetailedReport()
	for _, want := range []string{"standard_competitive", "e2e4", "300/300", "Verdict:   PASS", "extremely fast"} {
		if !strings.Contains(text, want) {
			t.Errorf("detailed report missing %q:\n%s", want, text)
		}
	}

	r.Errors = []string{"no samples were evaluated"}
	if !strings.Contains(r.DetailedReport(), "Verdict:   FAIL") {
		t.Error("failing result not marked FAIL")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	v := testVerifier(t)
	if _, err := v.Export(Report{}, "xml"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestComprehensiveSuiteParallel(t *testing.T) {
	if testing.Short() {
		t.Skip("comprehensive suite is slow")
	}
	positions := DefaultTestPositions()[:2]
	v := NewVerifier(SeededProvider(DefaultTestPositions()),
		vOptOutputDir(t),
		withQuietLogger(),
		WithParallelism(4),
	)

	report := v.RunComprehensiveTest(positions)
	want := len(AllScenarios()) * len(positions)
	if report.TotalTests != want {
		t.Errorf("TotalTests = %d, want %d", report.TotalTests, want)
	}
	if !report.IsOverallSuccess() {
		t.Errorf("comprehensive suite failed:\n%s", report.Summary())
	}
}

func TestLoadPositions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.yaml")
	content := `positions:
  - fen: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
    moves:
      - uci: e2e4
      - uci: d2d4
      - uci: g1f3
  - fen: "8/5pk1/8/8/8/8/5PK1/4R3 w - - 0 1"
    moves:
      - uci: e1e8
      - uci: e1e4
`
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	positions, err := LoadPositions(path)
	if err != nil {
		t.Fatalf("LoadPositions: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(positions))
	}
	if len(positions[0].LegalMoves()) != 3 {
		t.Errorf("first position has %d moves, want 3", len(positions[0].LegalMoves()))
	}
	if positions[1].ID() != "8/5pk1/8/8/8/8/5PK1/4R3 w - - 0 1" {
		t.Errorf("second position ID %q", positions[1].ID())
	}
}

func TestLoadPositionsErrors(t *testing.T) {
	if _, err := LoadPositions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("positions:\n  - fen: x\n    moves:\n      - uci: zz9x\n"), 0640)
	if _, err := LoadPositions(path); err == nil {
		t.Error("bad move notation accepted")
	}
}

func TestDefaultTestPositionsFixture(t *testing.T) {
	positions := DefaultTestPositions()
	if len(positions) != 7 {
		t.Fatalf("got %d default positions, want 7", len(positions))
	}

	captures := 0
	central := 0
	for _, pos := range positions {
		if len(pos.LegalMoves()) < 2 {
			t.Errorf("position %q has fewer than two moves", pos.ID())
		}
		for _, m := range pos.LegalMoves() {
			if m.Capture {
				captures++
			}
			if m.To.IsCentral() {
				central++
			}
		}
	}
	if captures == 0 {
		t.Error("fixture set has no capture moves")
	}
	if central == 0 {
		t.Error("fixture set has no central moves")
	}
}
