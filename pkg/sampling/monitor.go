// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sampling

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/logging"
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// samplesTotal counts recorded samples by evaluation source.
	samplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "path_integral_samples_total",
		Help: "Samples recorded by evaluation source",
	}, []string{"source"})

	// sampleDuration tracks per-sample evaluation latency.
	sampleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "path_integral_sample_duration_seconds",
		Help:    "Per-sample evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12), // 1µs to ~16s
	})

	// samplingSessions counts sampling sessions started.
	samplingSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "path_integral_sampling_sessions_total",
		Help: "Sampling sessions started",
	})
)

// SamplingMetrics is one sampling session's accounting.
//
// RequestedSamples is the session total (samples per move × legal moves).
// Derived fields are recomputed on EndSampling and on every live snapshot.
type SamplingMetrics struct {
	RequestedSamples     int     `json:"requested_samples"`
	ActualSamples        int     `json:"actual_samples"`
	NeuralNetEvaluations int     `json:"neural_net_evaluations"`
	CachedEvaluations    int     `json:"cached_evaluations"`
	HeuristicEvaluations int     `json:"heuristic_evaluations"`
	TotalTimeMs          float64 `json:"total_time_ms"`
	AvgTimePerSampleMs   float64 `json:"avg_time_per_sample_ms"`
	NeuralNetTimeMs      float64 `json:"neural_net_time_ms"`
	SamplesPerSecond     float64 `json:"samples_per_second"`
}

// calculateDerived fills AvgTimePerSampleMs and SamplesPerSecond from the
// raw counters, leaving both zero when there is nothing to divide by.
func (m *SamplingMetrics) calculateDerived() {
	if m.ActualSamples > 0 {
		m.AvgTimePerSampleMs = m.TotalTimeMs / float64(m.ActualSamples)
	} else {
		m.AvgTimePerSampleMs = 0
	}
	if m.TotalTimeMs > 0 {
		m.SamplesPerSecond = float64(m.ActualSamples) * 1000.0 / m.TotalTimeMs
	} else {
		m.SamplesPerSecond = 0
	}
}

// PerformanceMonitor accumulates per-session sampling metrics.
//
// # Description
//
// StartSampling resets and arms the session (calling it again before
// EndSampling re-arms with the new requested count — last call wins).
// RecordSample buckets a sample by source; EndSampling freezes timing and
// derives rates. GetMetrics may be called at any point and returns a live
// snapshot with elapsed time computed on demand while a session is active.
//
// # Thread Safety
//
// All methods are safe for concurrent use; sampling workers sharing one
// monitor will not lose updates.
type PerformanceMonitor struct {
	mu      sync.Mutex
	metrics SamplingMetrics
	start   time.Time
	active  bool
	log     *logging.Logger
}

// NewPerformanceMonitor creates a monitor. A nil logger falls back to the
// package default.
func NewPerformanceMonitor(log *logging.Logger) *PerformanceMonitor {
	if log == nil {
		log = logging.Default()
	}
	return &PerformanceMonitor{log: log}
}

// StartSampling resets all counters and arms a new session expecting the
// given total number of samples.
func (pm *PerformanceMonitor) StartSampling(requestedSamples int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.metrics = SamplingMetrics{RequestedSamples: requestedSamples}
	pm.start = time.Now()
	pm.active = true
	samplingSessions.Inc()

	pm.log.Debug("sampling session started", "requested_samples", requestedSamples)
}

// RecordSample counts one completed sample evaluation.
//
// An out-of-range source is bucketed as a neural evaluation and logged as a
// warning; samples are never silently dropped. Calls outside an active
// session are ignored.
func (pm *PerformanceMonitor) RecordSample(source Source, elapsedMs float64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if !pm.active {
		return
	}

	pm.metrics.ActualSamples++
	switch source {
	case SourceNeuralFresh:
		pm.metrics.NeuralNetEvaluations++
		pm.metrics.NeuralNetTimeMs += elapsedMs
	case SourceNeuralCached:
		pm.metrics.CachedEvaluations++
	case SourceHeuristic:
		pm.metrics.HeuristicEvaluations++
	default:
		pm.metrics.NeuralNetEvaluations++
		pm.metrics.NeuralNetTimeMs += elapsedMs
		pm.log.Warn("unknown evaluation source, counting as neural", "source", int(source))
	}

	samplesTotal.WithLabelValues(source.String()).Inc()
	sampleDuration.Observe(elapsedMs / 1000.0)
}

// EndSampling freezes the session's total elapsed time and derives rates.
func (pm *PerformanceMonitor) EndSampling() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if !pm.active {
		return
	}

	pm.metrics.TotalTimeMs = float64(time.Since(pm.start).Microseconds()) / 1000.0
	pm.metrics.calculateDerived()
	pm.active = false

	pm.log.Debug("sampling session completed",
		"requested_samples", pm.metrics.RequestedSamples,
		"actual_samples", pm.metrics.ActualSamples,
		"total_time_ms", pm.metrics.TotalTimeMs,
		"samples_per_second", pm.metrics.SamplesPerSecond,
	)
}

// GetMetrics returns the session metrics. While a session is active the
// snapshot carries the elapsed time at the moment of the call.
func (pm *PerformanceMonitor) GetMetrics() SamplingMetrics {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	metrics := pm.metrics
	if pm.active {
		metrics.TotalTimeMs = float64(time.Since(pm.start).Microseconds()) / 1000.0
		metrics.calculateDerived()
	}
	return metrics
}

// metricsRecord is the on-disk export envelope.
type metricsRecord struct {
	Timestamp string          `json:"timestamp"`
	Metrics   SamplingMetrics `json:"metrics"`
}

// ExportMetrics appends the current metrics as one JSON line to the given
// file, creating it if needed.
func (pm *PerformanceMonitor) ExportMetrics(path string) error {
	snapshot := pm.GetMetrics()

	record := metricsRecord{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Metrics:   snapshot,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("open metrics file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write metrics file %s: %w", path, err)
	}
	return nil
}
