// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package diag implements the NDJSON diagnostic event protocol for sampling
// runs. Events are scoped to a session (one session per selection call) and
// written line-by-line to stderr and, optionally, a file — the same stream a
// verification harness or external tooling parses back.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is the wire format for event timestamps, always UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// stderrPrefix marks diagnostic lines on the stderr stream so they can be
// separated from engine output.
const stderrPrefix = "PI_DEBUG: "

// MoveProbability pairs a move string with its selection probability inside
// a move_selection event.
type MoveProbability struct {
	Move        string  `json:"move"`
	Probability float64 `json:"probability"`
}

// envelope is the fixed outer shape of every event line.
type envelope struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Data      any    `json:"data"`
}

// Logger emits session-scoped NDJSON diagnostic events.
//
// # Description
//
// A Logger is injected into the components that emit events; nothing in this
// package forces a process-wide singleton, though Default offers one for the
// CLI. When disabled every call is a cheap no-op. Session events
// (sampling_start, sample_evaluation, and so on) are dropped unless a session
// is active; warnings, errors and info lines are emitted whenever the logger
// is enabled, with session_id "none" outside a session.
//
// # Thread Safety
//
// All methods are mutex-guarded and safe for concurrent use.
type Logger struct {
	mu            sync.Mutex
	enabled       bool
	toStderr      bool
	stderr        io.Writer
	file          *os.File
	filePath      string
	extra         io.Writer
	sessionActive bool
	sessionID     string
	positionID    string
	sessionStart  time.Time
}

// New returns a disabled logger writing to stderr once enabled.
func New() *Logger {
	return &Logger{
		toStderr: true,
		stderr:   os.Stderr,
	}
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Init installs a fresh process-wide default logger and returns it.
func Init() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = New()
	return defaultLogger
}

// Default returns the process-wide logger, creating it on first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New()
	}
	return defaultLogger
}

// Shutdown closes the process-wide logger's session and file, if any.
func Shutdown() {
	defaultMu.Lock()
	l := defaultLogger
	defaultMu.Unlock()
	if l != nil {
		l.Close()
	}
}

// SetEnabled turns event emission on or off. Disabling mid-session keeps the
// session marker so a later re-enable continues it.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// IsEnabled reports whether the logger emits events.
func (l *Logger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SetOutputFile routes events to the given file in addition to stderr.
//
// A failure to open the file is reported on stderr and the logger keeps
// running with stderr only — diagnostics never take the engine down.
func (l *Logger) SetOutputFile(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.filePath = ""
	}
	if path == "" {
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		fmt.Fprintf(l.stderrWriter(), "%sfailed to open debug output file %s: %v\n", stderrPrefix, path, err)
		return
	}
	l.file = f
	l.filePath = path
}

// OutputFile returns the active file path, or empty when file output is off.
func (l *Logger) OutputFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filePath
}

// SetOutputToStderr toggles the stderr sink.
func (l *Logger) SetOutputToStderr(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toStderr = enabled
}

// SetExtraSink attaches an additional writer receiving raw NDJSON lines
// without the stderr prefix. Verification harnesses use this to capture the
// event stream in memory. Pass nil to detach.
func (l *Logger) SetExtraSink(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extra = w
}

// Close ends any active session and closes the output file.
func (l *Logger) Close() {
	l.EndSession()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.filePath = ""
	}
}

// StartSession opens a new diagnostic session for a position and returns the
// session ID. An already-active session is closed implicitly first, so a
// crashed or short-circuited caller can never wedge the logger.
func (l *Logger) StartSession(positionID string) string {
	l.mu.Lock()
	if l.sessionActive {
		l.endSessionLocked()
	}
	l.sessionID = uuid.NewString()
	l.positionID = positionID
	l.sessionStart = time.Now()
	l.sessionActive = true
	id := l.sessionID

	if l.enabled {
		l.emitLocked("session_start", map[string]any{
			"session_id": l.sessionID,
			"position":   positionID,
		})
	}
	l.mu.Unlock()
	return id
}

// EndSession closes the active session, if any.
func (l *Logger) EndSession() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessionActive {
		l.endSessionLocked()
	}
}

func (l *Logger) endSessionLocked() {
	if l.enabled {
		l.emitLocked("session_end", map[string]any{
			"session_id":  l.sessionID,
			"position":    l.positionID,
			"duration_ms": float64(time.Since(l.sessionStart).Microseconds()) / 1000.0,
		})
	}
	l.sessionActive = false
	l.sessionID = ""
	l.positionID = ""
}

// SessionActive reports whether a session is open.
func (l *Logger) SessionActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionActive
}

// ==============================================================================
// Session events — dropped unless a session is active
//
// Every helper takes the IsEnabled fast path before building its payload, so
// calls on a disabled logger allocate nothing.
// ==============================================================================

// LogSamplingStart announces a sampling run's parameters.
func (l *Logger) LogSamplingStart(lambda float64, samples, legalMoves int, mode, rewardMode string) {
	if !l.IsEnabled() {
		return
	}
	l.logSessionEvent("sampling_start", map[string]any{
		"lambda":      lambda,
		"samples":     samples,
		"legal_moves": legalMoves,
		"mode":        mode,
		"reward_mode": rewardMode,
	})
}

// LogSampleEvaluation records one sample's score and provenance.
func (l *Logger) LogSampleEvaluation(sampleIdx int, move string, score float64, source string, elapsedMs float64) {
	if !l.IsEnabled() {
		return
	}
	l.logSessionEvent("sample_evaluation", map[string]any{
		"sample":     sampleIdx,
		"move":       move,
		"score":      score,
		"source":     source,
		"elapsed_ms": elapsedMs,
	})
}

// LogSamplingComplete summarizes a finished run.
func (l *Logger) LogSamplingComplete(totalSamples, neuralEvals, cachedEvals, heuristicEvals int, totalTimeMs float64) {
	if !l.IsEnabled() {
		return
	}
	l.logSessionEvent("sampling_complete", map[string]any{
		"total_samples":   totalSamples,
		"neural_evals":    neuralEvals,
		"cached_evals":    cachedEvals,
		"heuristic_evals": heuristicEvals,
		"total_time_ms":   totalTimeMs,
	})
}

// LogMoveSelection records the selected move, its aggregated score, and the
// full distribution it was drawn from.
func (l *Logger) LogMoveSelection(selected string, probability, score float64, distribution []MoveProbability) {
	if !l.IsEnabled() {
		return
	}
	l.logSessionEvent("move_selection", map[string]any{
		"selected_move": selected,
		"probability":   probability,
		"score":         score,
		"distribution":  distribution,
	})
}

// LogNeuralNetworkCall records one backend round-trip.
func (l *Logger) LogNeuralNetworkCall(cacheHit bool, durationMs float64, detail string) {
	if !l.IsEnabled() {
		return
	}
	l.logSessionEvent("neural_network_call", map[string]any{
		"cache_hit":   cacheHit,
		"duration_ms": durationMs,
		"detail":      detail,
	})
}

// LogSoftmaxCalculation records a softmax transform's inputs and outputs.
func (l *Logger) LogSoftmaxCalculation(scores, probabilities []float64, lambda float64) {
	if !l.IsEnabled() {
		return
	}
	l.logSessionEvent("softmax_calculation", map[string]any{
		"scores":        scores,
		"probabilities": probabilities,
		"lambda":        lambda,
	})
}

// logSessionEvent re-checks enablement under the lock; the callers' unlocked
// fast path may race a concurrent SetEnabled.
func (l *Logger) logSessionEvent(eventType string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || !l.sessionActive {
		return
	}
	data["session_id"] = l.sessionID
	l.emitLocked(eventType, data)
}

// ==============================================================================
// Free events — emitted whenever the logger is enabled
// ==============================================================================

// LogWarning emits a warning event inside or outside a session.
func (l *Logger) LogWarning(message string) {
	l.logFreeEvent("warning", message)
}

// LogError emits an error event inside or outside a session.
func (l *Logger) LogError(message string) {
	l.logFreeEvent("error", message)
}

// LogInfo emits an informational event inside or outside a session.
func (l *Logger) LogInfo(message string) {
	l.logFreeEvent("info", message)
}

func (l *Logger) logFreeEvent(eventType, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}
	sessionID := "none"
	if l.sessionActive {
		sessionID = l.sessionID
	}
	l.emitLocked(eventType, map[string]any{
		"session_id": sessionID,
		"message":    message,
	})
}

// emitLocked serializes and writes one event line. Callers hold l.mu.
func (l *Logger) emitLocked(eventType string, data any) {
	if !l.enabled {
		return
	}
	line, err := json.Marshal(envelope{
		Timestamp: time.Now().UTC().Format(timestampLayout),
		EventType: eventType,
		Data:      data,
	})
	if err != nil {
		// Data is always maps of JSON-safe values; a marshal failure
		// means a bug upstream, report it instead of the event.
		fmt.Fprintf(l.stderrWriter(), "%sevent marshal failed: %v\n", stderrPrefix, err)
		return
	}

	if l.toStderr {
		fmt.Fprintf(l.stderrWriter(), "%s%s\n", stderrPrefix, line)
	}
	if l.file != nil {
		l.file.Write(append(line, '\n'))
	}
	if l.extra != nil {
		l.extra.Write(append(line, '\n'))
	}
}

func (l *Logger) stderrWriter() io.Writer {
	if l.stderr != nil {
		return l.stderr
	}
	return os.Stderr
}
